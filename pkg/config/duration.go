package config

import "time"

// Duration wraps time.Duration so manifest/config YAML can write "5s"/"200ms"
// instead of a raw integer of nanoseconds.
type Duration time.Duration

// Dur returns the underlying time.Duration.
func (d Duration) Dur() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}
