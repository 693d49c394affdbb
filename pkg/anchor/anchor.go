package anchor

import (
	"crypto/sha256"
	"fmt"
)

const DiscriminatorLength = 8

func GetDiscriminator(namespace string, name string) []byte {
	preimage := fmt.Sprintf("%s:%s", namespace, name)
	hash := sha256.Sum256([]byte(preimage))
	return hash[:DiscriminatorLength]
}

// InstructionDiscriminator returns the 8-byte prefix Anchor expects for a
// global instruction handler.
func InstructionDiscriminator(name string) [DiscriminatorLength]byte {
	var out [DiscriminatorLength]byte
	copy(out[:], GetDiscriminator("global", name))
	return out
}

// AccountDiscriminator returns the 8-byte prefix Anchor writes at the start
// of every account of the given type.
func AccountDiscriminator(typeName string) [DiscriminatorLength]byte {
	var out [DiscriminatorLength]byte
	copy(out[:], GetDiscriminator("account", typeName))
	return out
}
