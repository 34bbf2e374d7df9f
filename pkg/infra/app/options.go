package app

// CliOptions is implemented by a command's root options struct.
// Flags groups the flags per concern; Complete runs before Validate.
type CliOptions interface {
	Flags() NamedFlagSets
	Complete() error
	Validate() error
}
