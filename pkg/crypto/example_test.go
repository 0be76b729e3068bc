package crypto

import (
	"fmt"
)

// ExampleActionSigner_SignAction signs an action the way a client does and
// verifies it the way the exchange does.
func ExampleActionSigner_SignAction() {
	// Step 1: Load a key (or GenerateKey)
	signer, err := FromPrivateKeyHex("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	if err != nil {
		panic(err)
	}

	// Step 2: Sign the exact action bytes for a nonce
	action := []byte(`{"type":"cancel","cancels":[{"a":0,"o":77738308}]}`)
	nonce := uint64(1700000000000)

	actions := NewActionSigner(false)
	sig, err := actions.SignAction(signer, action, nonce, nil)
	if err != nil {
		panic(err)
	}

	// Step 3: Recover the signer from the same bytes
	recovered, err := actions.RecoverActionSigner(action, nonce, nil, sig)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Matches signer: %v\n", recovered == signer.Address())

	// Replay protection: the nonce is part of the hash
	replayed, err := actions.RecoverActionSigner(action, nonce+1, nil, sig)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Replay with another nonce matches: %v\n", replayed == signer.Address())

	// Output:
	// Matches signer: true
	// Replay with another nonce matches: false
}
