package version

var version = "0.2.0"

func Full() string {
	return version
}
