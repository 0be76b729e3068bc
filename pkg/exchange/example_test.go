package exchange

import (
	"encoding/json"
	"fmt"
)

func ExampleParseRef() {
	for _, s := range []string{"77738308", "123e4567-e89b-12d3-a456-426614174000"} {
		ref, err := ParseRef(s)
		if err != nil {
			panic(err)
		}
		out, _ := json.Marshal(ref)
		fmt.Printf("cloid=%v %s\n", ref.IsCloid(), out)
	}

	// Output:
	// cloid=false 77738308
	// cloid=true "0x123e4567e89b12d3a456426614174000"
}

func ExampleOidOrCloid_UnmarshalJSON() {
	var req ModifyRequest
	err := json.Unmarshal([]byte(`{"oid":true,"order":{}}`), &req)
	fmt.Println(err != nil)

	err = json.Unmarshal([]byte(`{"oid":"0x123e4567e89b12d3a456426614174000","order":{}}`), &req)
	fmt.Println(err, req.Oid.IsCloid())

	// Output:
	// true
	// <nil> true
}
