package platform

// Package platform contains OS integration glue: opening results with
// the default application, revealing files in the system file manager,
// and filesystem helpers.
