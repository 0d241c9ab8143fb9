package models

// ColorEntry is a client-defined color record. Only the "image" field has a
// meaning on the server side; every other field is stored as received.
type ColorEntry map[string]interface{}

// ImageField is the entry field that may carry an inline data URI
const ImageField = "image"

// AddColorsRequest is the body accepted by the add-colors endpoint
type AddColorsRequest struct {
	Colors []ColorEntry `json:"colors"`
}

// RemoveColorRequest is the optional body of the remove-color endpoint
type RemoveColorRequest struct {
	Index interface{} `json:"index"`
}

// ColorsData is the data block of a color mutation response
type ColorsData struct {
	Status int          `json:"status"`
	Colors []ColorEntry `json:"colors"`
}
