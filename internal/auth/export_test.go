package auth

// SetPasswordVerifier swaps the comparison Login runs and returns a restore func.
func SetPasswordVerifier(fn func(hash, password string) error) func() {
	prev := verifyPassword
	verifyPassword = fn
	return func() { verifyPassword = prev }
}
