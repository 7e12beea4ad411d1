package proof

import "math/big"

// The circuits name their inputs after the participants of the operation.
// Points are [x, y] pairs and ciphertexts [[c1.x, c1.y], [c2.x, c2.y]].

func str(v *big.Int) string {
	return v.String()
}

func pair(in []*big.Int) []string {
	return []string{str(in[0]), str(in[1])}
}

func ciphertext(in []*big.Int) [][]string {
	return [][]string{pair(in[0:2]), pair(in[2:4])}
}

func pctSignals(in []*big.Int) map[string]any {
	return map[string]any{
		"ciphertext": bigsToStrings(in[0:4]),
		"authKey":    pair(in[4:6]),
		"nonce":      str(in[6]),
	}
}

func registerSignals(req *Request) map[string]any {
	pub, priv := req.PublicInputs, req.PrivateWitness
	return map[string]any{
		"senderPrivateKey": str(priv[0]),
		"senderPublicKey":  pair(pub[RegisterPublicKey:]),
		"registrationHash": str(pub[RegisterHash]),
		"counter":          str(pub[RegisterInputs-1]),
	}
}

func mintSignals(req *Request) map[string]any {
	pub, priv := req.PublicInputs, req.PrivateWitness
	auditorPCT := pctSignals(pub[MintPCT:])
	auditorPCT["random"] = str(priv[2])
	return map[string]any{
		"valueToMint":         str(priv[0]),
		"receiverPublicKey":   pair(pub[MintRecipientKey:]),
		"receiverValueEGCT":   ciphertext(pub[MintCiphertext:]),
		"receiverValueRandom": str(priv[1]),
		"auditorPublicKey":    pair(pub[MintAuditorKey:]),
		"auditorPCT":          auditorPCT,
		"mintNullifier":       str(pub[MintNullifierAt]),
		"counter":             str(pub[MintInputs-1]),
	}
}

func transferSignals(req *Request) map[string]any {
	pub, priv := req.PublicInputs, req.PrivateWitness
	auditorPCT := pctSignals(pub[TransferPCT:])
	auditorPCT["random"] = str(priv[5])
	return map[string]any{
		"valueToTransfer":      str(priv[0]),
		"senderPrivateKey":     str(priv[1]),
		"senderBalance":        str(priv[2]),
		"senderValueRandom":    str(priv[3]),
		"senderPublicKey":      pair(pub[TransferSenderKey:]),
		"receiverPublicKey":    pair(pub[TransferRecipientKey:]),
		"senderBalanceEGCT":    ciphertext(pub[TransferBalance:]),
		"senderNewBalanceEGCT": ciphertext(pub[TransferNewBalance:]),
		"receiverValueEGCT":    ciphertext(pub[TransferRecipientDelta:]),
		"receiverValueRandom":  str(priv[4]),
		"auditorPublicKey":     pair(pub[TransferAuditorKey:]),
		"auditorPCT":           auditorPCT,
		"counter":              str(pub[TransferInputs-1]),
	}
}
