package interceptor

// SecurityLevel is the authentication a gRPC method demands.
type SecurityLevel int

const (
	// SecurityAccess requires a valid access token. Methods not listed below default to it.
	SecurityAccess SecurityLevel = iota
	SecurityPublic
	// SecurityAdmin requires an access token carrying the is_admin claim.
	SecurityAdmin
)

var methodSecurity = map[string]SecurityLevel{
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/List":  SecurityPublic,

	"/library.v1.LoanService/ListActiveLoans": SecurityAdmin,
	"/library.v1.LoanService/ListOverdueLoans": SecurityAdmin,
	"/library.v1.LoanService/ListLoansByBook":  SecurityAdmin,
}

// GetSecurityLevel returns the level configured for fullMethod.
func GetSecurityLevel(fullMethod string) SecurityLevel {
	if level, ok := methodSecurity[fullMethod]; ok {
		return level
	}
	return SecurityAccess
}
