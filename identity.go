package sandbox

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// EnvironmentIdentity is the deterministic (db_name, db_password) pair
// derived from an environment script. It is pure and is never stored — it
// is recomputed on every request.
type EnvironmentIdentity struct {
	// DBName is 63 hex chars: the backing RDBMS's maximum identifier
	// length.
	DBName string
	// DBPassword is 64 hex chars, derived with a process-wide secret key.
	// It must never be logged.
	DBPassword string
}

// DeriveIdentity computes the EnvironmentIdentity for environment:
//
//	h = hex(blake3(environment))
//	db_name = h[0:63]
//	db_password = hex(blake3_keyed(passwordHashKey, h))
//
// Collisions on the 252-bit db_name prefix are considered cryptographically
// unreachable and are not detected.
func DeriveIdentity(environment string, passwordHashKey [32]byte) EnvironmentIdentity {
	sum := blake3.Sum256([]byte(environment))
	h := hex.EncodeToString(sum[:])

	keyed := blake3.New(32, passwordHashKey[:])
	keyed.Write([]byte(h))
	password := hex.EncodeToString(keyed.Sum(nil))

	return EnvironmentIdentity{
		DBName:     h[:63],
		DBPassword: password,
	}
}
