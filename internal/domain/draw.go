package domain

import (
	"crypto/sha256"
	"encoding/binary"
)

// ChainDigest encadena una contribución al digest acumulado: sha256 de la
// concatenación. Es sensible al orden, igual que el programa on-chain, que
// encadena los blockhashes en el orden en que las apuestas aterrizan.
func ChainDigest(existing [32]byte, contribution []byte) [32]byte {
	buf := make([]byte, 0, len(existing)+len(contribution))
	buf = append(buf, existing[:]...)
	buf = append(buf, contribution...)
	return sha256.Sum256(buf)
}

// DeriveNumber calcula el número sorteado a partir del digest final: suma los
// cuatro uint64 little-endian del digest (con wraparound intencional, que en
// Go es la semántica nativa de uint64, igual que wrapping_add en el programa)
// y reduce módulo 25. Cualquier divergencia con el cálculo on-chain es un bug
// crítico, no una tolerancia.
func DeriveNumber(digest [32]byte) uint8 {
	var sum uint64
	for i := 0; i < len(digest); i += 8 {
		sum += binary.LittleEndian.Uint64(digest[i : i+8])
	}
	return uint8(sum%NumberCount) + 1
}

// PredictNumber devuelve el número que el programa sortearía si la próxima
// transacción del juego observara el blockhash dado. Es la predicción local
// del controller; la autoridad sigue siendo el programa, que puede observar
// otro blockhash al confirmar (gap time-of-check/time-of-use del dominio).
func PredictNumber(combinedHash [32]byte, blockhash [32]byte) uint8 {
	return DeriveNumber(ChainDigest(combinedHash, blockhash[:]))
}
