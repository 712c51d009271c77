package events

type subSettings struct {
	buffer           int
	matchFieldValues map[string]string
}

var subSettingsDefault = subSettings{
	buffer: 16,
}

// BufSize sets the size of the subscription's channel buffer.
func BufSize(n int) func(interface{}) error {
	return func(s interface{}) error {
		s.(*subSettings).buffer = n
		return nil
	}
}

// MatchField restricts a subscription to events whose named string
// field equals value. Events without the field are not delivered.
func MatchField(field, value string) func(interface{}) error {
	return func(s interface{}) error {
		settings := s.(*subSettings)
		if settings.matchFieldValues == nil {
			settings.matchFieldValues = make(map[string]string)
		}
		settings.matchFieldValues[field] = value
		return nil
	}
}
