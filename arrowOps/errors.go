package arrowops

import "errors"

var (
	ErrUnsupportedDataType    = errors.New("unsupported data type")
	ErrNoDataLeft             = errors.New("no data left")
	ErrSchemasNotEqual        = errors.New("schemas not equal")
	ErrIndexOutOfBounds       = errors.New("index out of bounds")
	ErrCSVHeaderMissing       = errors.New("csv header missing")
	ErrCSVMalformed           = errors.New("csv malformed")
	ErrUnsupportedCompression = errors.New("unsupported compression")
)
