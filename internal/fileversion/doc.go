// Package fileversion reads the product version embedded in the version
// resource of a Windows executable. On other platforms ProductVersion always
// fails; callers that need portability inject their own reader.
package fileversion
