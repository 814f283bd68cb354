package opencl

import _ "embed"

var (
	//go:embed util.cl
	util_source string
	//go:embed kernel_extract.cl
	kernel_extract_source string
)

const (
	kernel_name = "extract"
	// Number of in-flight payloads in the streamer.
	streamer_depth = 2
)
