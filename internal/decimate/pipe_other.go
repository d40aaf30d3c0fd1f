//go:build !unix

package decimate

func newPipeDecimator(Tool) (Decimator, error) {
	return nil, ErrPipeNotSupported
}
