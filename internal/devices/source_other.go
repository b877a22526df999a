//go:build !linux

package devices

func platformSource(string) Source {
	return nil
}
