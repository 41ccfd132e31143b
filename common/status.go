package common

//go:generate go run github.com/dmarkham/enumer -json -type Status -trimprefix Status

// Status of a requested download at the end of the run
type Status int

const (
	StatusDOWNLOADED Status = iota
	StatusSKIPPED
	StatusFAILED
)
