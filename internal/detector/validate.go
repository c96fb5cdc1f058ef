package detector

import "unicode/utf8"

// validateDescriptor enforces every constraint in the data model: a
// strictly positive identifier, a non-empty bounded title, a bounded
// description, a bounded file list with bounded entries, and a bounded
// optional diff. Any violation returns an invalid_input error and no
// partial work is performed by the caller.
func validateDescriptor(d Descriptor) error {
	if d.ID <= 0 {
		return invalidInput("identifier must be strictly positive, got %d", d.ID)
	}
	if len(d.Title) == 0 {
		return invalidInput("title must not be empty")
	}
	if n := utf8.RuneCountInString(d.Title); n > maxTitleChars {
		return invalidInput("title exceeds %d characters (got %d)", maxTitleChars, n)
	}
	if n := utf8.RuneCountInString(d.Description); n > maxDescriptionChars {
		return invalidInput("description exceeds %d characters (got %d)", maxDescriptionChars, n)
	}
	if len(d.Files) > maxFiles {
		return invalidInput("file list exceeds %d entries (got %d)", maxFiles, len(d.Files))
	}
	for i, f := range d.Files {
		if len(f) == 0 {
			return invalidInput("file path at index %d must not be empty", i)
		}
		if utf8.RuneCountInString(f) > maxFilePathChars {
			return invalidInput("file path at index %d exceeds %d characters", i, maxFilePathChars)
		}
	}
	if n := utf8.RuneCountInString(d.Diff); n > maxDiffChars {
		return invalidInput("diff exceeds %d characters (got %d)", maxDiffChars, n)
	}
	return nil
}

const maxCheckManyBatch = 1000

func validateBatch(descriptors []Descriptor) error {
	if len(descriptors) > maxCheckManyBatch {
		return invalidInput("check_many exceeds %d descriptors (got %d)", maxCheckManyBatch, len(descriptors))
	}
	return nil
}
