package async

type result[R any] struct {
	value R
	cause error
}

func succeed[R any](value R) result[R] {
	return result[R]{value: value}
}

func failed[R any](cause error) result[R] {
	return result[R]{cause: cause}
}
