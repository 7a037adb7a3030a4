package memory

import (
	"context"
	"sort"
	"time"

	"library-backend/internal/domain"
)

type statsRepository struct{ r repos }

func (s *statsRepository) General(ctx context.Context, now time.Time) (*domain.GeneralStats, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	st := s.r.s.state
	out := &domain.GeneralStats{
		UniqueBooks: int64(len(st.books)),
		TotalUsers:  int64(len(st.users)),
		TotalLoans:  int64(len(st.loans)),
	}
	for _, b := range st.books {
		out.TotalBooks += int64(b.Quantity)
	}
	for _, u := range st.users {
		if u.IsActive {
			out.ActiveUsers++
		}
	}
	for _, l := range st.loans {
		if l.IsActive() {
			out.ActiveLoans++
		}
		if l.IsOverdue(now) {
			out.OverdueLoans++
		}
	}
	return out, nil
}

func (s *statsRepository) loanCounts(key func(domain.Loan) int32) map[int32]int64 {
	counts := map[int32]int64{}
	for _, l := range s.r.s.state.loans {
		counts[key(l)]++
	}
	return counts
}

func rankedIDs(counts map[int32]int64, limit int32) []int32 {
	ids := make([]int32, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if limit > 0 && int(limit) < len(ids) {
		ids = ids[:limit]
	}
	return ids
}

func (s *statsRepository) MostBorrowedBooks(ctx context.Context, limit int32) ([]domain.BookLoanCount, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	counts := s.loanCounts(func(l domain.Loan) int32 { return l.BookID })
	out := []domain.BookLoanCount{}
	for _, id := range rankedIDs(counts, limit) {
		b := s.r.s.state.books[id]
		out = append(out, domain.BookLoanCount{BookID: id, Title: b.Title, Author: b.Author, LoanCount: counts[id]})
	}
	return out, nil
}

func (s *statsRepository) MostActiveUsers(ctx context.Context, limit int32) ([]domain.UserLoanCount, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	counts := s.loanCounts(func(l domain.Loan) int32 { return l.UserID })
	out := []domain.UserLoanCount{}
	for _, id := range rankedIDs(counts, limit) {
		u := s.r.s.state.users[id]
		out = append(out, domain.UserLoanCount{UserID: id, FullName: u.FullName, Email: u.Email, LoanCount: counts[id]})
	}
	return out, nil
}

func (s *statsRepository) MonthlyLoans(ctx context.Context, since time.Time) ([]domain.MonthlyLoanCount, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	counts := map[string]int64{}
	for _, l := range s.r.s.state.loans {
		if l.LoanDate.Before(since) {
			continue
		}
		counts[l.LoanDate.UTC().Format("2006-01")]++
	}
	out := make([]domain.MonthlyLoanCount, 0, len(counts))
	for month, n := range counts {
		out = append(out, domain.MonthlyLoanCount{Month: month, LoanCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}
