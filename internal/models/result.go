package models

// Status is the outcome of geocoding a single address.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Result is one output row: the address as read from input and, on success, its coordinates.
type Result struct {
	Address     string       // Address is the input text, unchanged.
	Coordinates *Coordinates // Coordinates is nil when Status is StatusFail.
	Status      Status       // Status of the lookup.
}

// NewResult builds a Result whose status follows from whether coordinates were found.
func NewResult(address string, coords *Coordinates) Result {
	if coords == nil {
		return Result{Address: address, Status: StatusFail}
	}

	return Result{Address: address, Coordinates: coords, Status: StatusSuccess}
}

// Succeeded reports whether the result carries coordinates.
func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}
