package update

// Classify returns the update type of a decoded payload.
// Missing, null, non-string and unrecognized values all classify as Unknown.
func Classify(payload map[string]any) UpdateType {
	if payload == nil {
		return Unknown
	}
	s, ok := payload["update_type"].(string)
	if !ok {
		return Unknown
	}
	t := UpdateType(s)
	if !t.Valid() {
		return Unknown
	}
	return t
}
