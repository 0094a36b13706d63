// Package validation checks the files a run reads and the directory it
// writes to, before any parsing starts. Failures are typed application
// errors: missing or unreadable paths are STORAGE errors, wrong kinds of
// paths are VALIDATION errors.
package validation
