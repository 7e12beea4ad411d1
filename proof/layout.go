package proof

import "fmt"

// Public input offsets. Points take 2 elements, ciphertexts 4 and auditor
// ciphertexts 7; the counter is always the last input.
const (
	RegisterPublicKey = 0
	RegisterHash      = 2
	RegisterInputs    = 4

	MintRecipientKey = 0
	MintCiphertext   = 2
	MintAuditorKey   = 6
	MintPCT          = 8
	MintNullifierAt  = 15
	MintInputs       = 17

	TransferSenderKey      = 0
	TransferRecipientKey   = 2
	TransferBalance        = 4
	TransferNewBalance     = 8
	TransferRecipientDelta = 12
	TransferAuditorKey     = 16
	TransferPCT            = 18
	TransferInputs         = 26
)

// NumPublicInputs returns the number of public inputs of typ.
func NumPublicInputs(typ Type) (int, error) {
	switch typ {
	case TypeRegister:
		return RegisterInputs, nil
	case TypeMint:
		return MintInputs, nil
	case TypeTransfer, TypeBurn:
		return TransferInputs, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedType, typ)
}
