package version

// Both values are set at build time with
// -ldflags "-X ely.by/skinbox/internal/version.version=... -X ely.by/skinbox/internal/version.commit=..."
var (
	version = "dev"
	commit  = ""
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}
