//go:build !gosseract

package recovery

import "fmt"

func newGosseract(cfg *Config) (Recognizer, error) {
	return nil, fmt.Errorf("%w: binary built without the gosseract tag", ErrEngineUnavailable)
}
