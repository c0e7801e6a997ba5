package adc

// Sampler yields one raw ADC code per call
type Sampler interface {
	ReadSample() (int, error)
}

// Device is an opened acquisition handle. It is held for the lifetime of
// the process and released exactly once with Close.
type Device interface {
	Read(channel int) (int, error)
	Close() error
}
