package exchange

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestModifyRequestWire(t *testing.T) {
	tests := []struct {
		name string
		ref  OidOrCloid
		want string
	}{
		{
			name: "by oid",
			ref:  NewOid(77738308),
			want: `{"oid":77738308,"order":{"a":0,"b":true,"p":"50000","s":"0.01","r":false,"t":{"limit":{"tif":"Alo"}}}}`,
		},
		{
			name: "by cloid",
			ref:  NewCloid(testCloid),
			want: `{"oid":"0x123e4567e89b12d3a456426614174000","order":{"a":0,"b":true,"p":"50000","s":"0.01","r":false,"t":{"limit":{"tif":"Alo"}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := ClientModifyRequest{
				Oid: tt.ref,
				Order: ClientOrderRequest{
					Asset:     "BTC",
					IsBuy:     true,
					LimitPx:   50000,
					Sz:        0.01,
					OrderType: NewLimitOrder(TifAlo),
				},
			}
			req, err := client.Convert(testUniverse)
			if err != nil {
				t.Fatalf("Convert() error: %v", err)
			}

			data, err := json.Marshal(req)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s\nwant %s", data, tt.want)
			}

			var back ModifyRequest
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if back.Oid != tt.ref {
				t.Errorf("decoded oid = %v, want %v", back.Oid, tt.ref)
			}
		})
	}
}

func TestModifyRequestBadOidFailsWholeRequest(t *testing.T) {
	tests := []struct {
		name string
		oid  string
		want error
	}{
		{"bad cloid", `"not-a-uuid"`, ErrInvalidCloid},
		{"negative oid", `-1`, ErrInvalidOid},
		{"null oid", `null`, ErrUnsupportedOidShape},
		{"bool oid", `true`, ErrUnsupportedOidShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"oid":` + tt.oid + `,"order":{"a":0,"b":true,"p":"1","s":"1","r":false,"t":{"limit":{"tif":"Gtc"}}}}`
			var req ModifyRequest
			err := json.Unmarshal([]byte(body), &req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Unmarshal() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeAction(t *testing.T) {
	modify := NewModify(ModifyRequest{
		Oid:   NewCloid(testCloid),
		Order: OrderRequest{Asset: 1, LimitPx: "1", Sz: "2", OrderType: OrderType{Limit: &Limit{Tif: TifGtc}}},
	})
	batch := NewBatchModify(modify.ModifyRequest, ModifyRequest{Oid: NewOid(9), Order: modify.Order})
	cancel := NewBulkCancel(CancelRequest{Asset: 1, Oid: 9})
	cancelCloid := NewBulkCancelCloid(CancelRequestCloid{Asset: 1, Cloid: CloidToHex(testCloid)})
	order := NewBulkOrder(modify.Order)

	for _, action := range []Action{modify, batch, cancel, cancelCloid, order} {
		data, err := json.Marshal(action)
		if err != nil {
			t.Fatal(err)
		}
		got, err := DecodeAction(data)
		if err != nil {
			t.Fatalf("DecodeAction(%s) error: %v", data, err)
		}
		if got.ActionType() != action.ActionType() {
			t.Errorf("DecodeAction(%s) type = %s", data, got.ActionType())
		}
	}

	data, _ := json.Marshal(modify)
	want := `{"type":"modify","oid":"0x123e4567e89b12d3a456426614174000","order":{"a":1,"b":false,"p":"1","s":"2","r":false,"t":{"limit":{"tif":"Gtc"}}}}`
	if string(data) != want {
		t.Errorf("Marshal(modify) = %s\nwant %s", data, want)
	}

	got, _ := DecodeAction(data)
	if got.(*Modify).Oid != NewCloid(testCloid) {
		t.Errorf("decoded modify oid = %v", got.(*Modify).Oid)
	}
}

func TestDecodeActionErrors(t *testing.T) {
	if _, err := DecodeAction([]byte(`{"type":"withdraw"}`)); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("unknown type error = %v", err)
	}

	bad := `{"type":"batchModify","modifies":[{"oid":1,"order":{"a":0,"b":true,"p":"1","s":"1","r":false,"t":{"limit":{"tif":"Gtc"}}}},{"oid":3.5,"order":{"a":0,"b":true,"p":"1","s":"1","r":false,"t":{"limit":{"tif":"Gtc"}}}}]}`
	if _, err := DecodeAction([]byte(bad)); !errors.Is(err, ErrInvalidOid) {
		t.Errorf("bad oid in batch error = %v, want ErrInvalidOid", err)
	}
}

func TestNewCancel(t *testing.T) {
	switch c := NewCancel("BTC", NewOid(5)).(type) {
	case ClientCancelRequest:
		req, err := c.Convert(testUniverse)
		if err != nil || req != (CancelRequest{Asset: 0, Oid: 5}) {
			t.Errorf("Convert() = %+v, %v", req, err)
		}
	default:
		t.Errorf("NewCancel(oid) = %T", c)
	}

	switch c := NewCancel("ETH", NewCloid(testCloid)).(type) {
	case ClientCancelRequestCloid:
		req, err := c.Convert(testUniverse)
		if err != nil {
			t.Fatal(err)
		}
		if req.Asset != 1 || req.Cloid != "0x123e4567e89b12d3a456426614174000" {
			t.Errorf("Convert() = %+v", req)
		}
		ref, err := req.Ref()
		if err != nil || ref != NewCloid(testCloid) {
			t.Errorf("Ref() = %v, %v", ref, err)
		}
	default:
		t.Errorf("NewCancel(cloid) = %T", c)
	}
}
