// Package seed provides the starter templates offered when a course
// category has never been saved and its snapshot is empty. Pure data,
// no I/O; persistence of the template is the store's job.
package seed

// Category names mirror editor.Category values; plain strings keep this
// package dependency-free.
const (
	Objectives   = "objectives"
	Requirements = "requirements"
	Audiences    = "audiences"
	Materials    = "materials"
)

var defaults = map[string][]string{
	Objectives: {
		"Example: understand the core concepts covered in this course",
		"Example: build a complete project from scratch",
		"Example: apply what you learned to real-world problems",
		"Example: prepare for the next course in this track",
	},
	Requirements: {
		"Example: no prior experience needed, everything is covered",
		"Example: a computer with an internet connection",
	},
	Audiences: {
		"Example: beginners curious about this topic",
	},
	// Materials has no sensible template; instructors attach their own files.
}

// Defaults returns the starter template for a category, in display
// order. Unknown categories and categories without a template return nil.
func Defaults(category string) []string {
	tpl := defaults[category]
	if len(tpl) == 0 {
		return nil
	}
	out := make([]string, len(tpl))
	copy(out, tpl)
	return out
}
