package async

// Discard returns the detach token: both arms of the outcome are dropped.
func Discard[R any]() Token[R] {
	return Handler[R](func(R, error) {})
}

// DiscardOrPanic returns the detach-raising token: the value arm is
// dropped, a non-nil error panics on the executor thread.
func DiscardOrPanic[R any]() Token[R] {
	return Handler[R](func(_ R, err error) {
		if err != nil {
			panic(err)
		}
	})
}
