package stable

import "github.com/ethereum/go-ethereum/common"

var positionPrefix = []byte("stable/pos/")

func positionKey(account common.Address) []byte {
	key := make([]byte, 0, len(positionPrefix)+common.AddressLength)
	key = append(key, positionPrefix...)
	return append(key, account.Bytes()...)
}
