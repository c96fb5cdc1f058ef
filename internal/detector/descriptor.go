package detector

// Descriptor is the input to Check: a pull-request-shaped unit of work
// the caller wants classified against previously indexed descriptors.
type Descriptor struct {
	ID          int64
	Title       string
	Description string
	Files       []string
	Diff        string
}

const (
	maxTitleChars       = 500
	maxDescriptionChars = 10000
	maxFiles            = 1000
	maxFilePathChars    = 500
	maxDiffChars        = 500000
)
