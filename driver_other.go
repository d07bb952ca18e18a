//go:build !linux

package serial

func openNative(name string, config Config) (Driver, error) {
	return openPortable(name, config)
}
