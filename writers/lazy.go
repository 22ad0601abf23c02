package writers

import "io"

// LazyWriteCloser defers opening the underlying writer until the first
// write. The CLI uses it for its output file so a decode that fails
// before producing anything leaves no empty file behind.
type LazyWriteCloser struct {
	open   func() (io.WriteCloser, error)
	writer io.WriteCloser
}

func NewLazyWriteCloser(open func() (io.WriteCloser, error)) *LazyWriteCloser {
	return &LazyWriteCloser{open: open}
}

func (l *LazyWriteCloser) Write(p []byte) (int, error) {
	if l.writer == nil {
		var err error
		l.writer, err = l.open()
		if err != nil {
			return 0, err
		}
	}
	return l.writer.Write(p)
}

func (l *LazyWriteCloser) Close() error {
	if l.writer != nil {
		return l.writer.Close()
	}
	return nil
}
