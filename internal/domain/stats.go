package domain

type GeneralStats struct {
	TotalBooks   int64 `json:"total_books" db:"total_books"` // sum of available copies
	UniqueBooks  int64 `json:"unique_books" db:"unique_books"`
	TotalUsers   int64 `json:"total_users" db:"total_users"`
	ActiveUsers  int64 `json:"active_users" db:"active_users"`
	TotalLoans   int64 `json:"total_loans" db:"total_loans"`
	ActiveLoans  int64 `json:"active_loans" db:"active_loans"`
	OverdueLoans int64 `json:"overdue_loans" db:"overdue_loans"`
}

type BookLoanCount struct {
	BookID    int32  `json:"id" db:"id"`
	Title     string `json:"title" db:"title"`
	Author    string `json:"author" db:"author"`
	LoanCount int64  `json:"loan_count" db:"loan_count"`
}

type UserLoanCount struct {
	UserID    int32  `json:"id" db:"id"`
	FullName  string `json:"full_name" db:"full_name"`
	Email     string `json:"email" db:"email"`
	LoanCount int64  `json:"loan_count" db:"loan_count"`
}

type MonthlyLoanCount struct {
	Month     string `json:"month" db:"month"` // YYYY-MM
	LoanCount int64  `json:"loan_count" db:"loan_count"`
}
