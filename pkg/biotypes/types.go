// Package biotypes holds the shared vocabulary of the biometric subsystem:
// raw sensor output and fused templates as they move between the capture
// layer, the local store and the directory client.
package biotypes

// RawSample is one acquisition from the sensor, before feature extraction.
// Opaque to everything except the sensor SDK.
type RawSample []byte

// Template is a fused biometric signature for one enrolled identity. The
// byte form is both the durable representation and the comparable input the
// sensor accepts; this subsystem never looks inside it.
type Template []byte

// Clone returns an independent copy of the template bytes. Stores hand out
// clones so callers cannot mutate cached state.
func (t Template) Clone() Template {
	if t == nil {
		return nil
	}
	out := make(Template, len(t))
	copy(out, t)
	return out
}
