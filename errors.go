package epaper

// IOError records a failure persisting an encoded frame.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return "epaper: " + e.Op + ": " + e.Err.Error()
	}
	return "epaper: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}
