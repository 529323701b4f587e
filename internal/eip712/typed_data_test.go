package eip712

import "testing"

func buildSampleTypedData(sequence string) TypedData {
	return TypedData{
		Types:       TxSchema,
		PrimaryType: "Tx",
		Domain: map[string]any{
			"name":              "Injective Web3",
			"version":           "1.0.0",
			"chainId":           "0x59f",
			"verifyingContract": "cosmos",
			"salt":              "0",
		},
		Message: map[string]any{
			"account_number": "36669",
			"chain_id":       "injective-888",
			"fee": map[string]any{
				"amount": []any{
					map[string]any{"denom": "inj", "amount": "500000000000000"},
				},
				"gas": "250000",
			},
			"memo": "",
			"msgs": []any{
				map[string]any{
					"type": "wasmx/MsgExecuteContractCompat",
					"value": map[string]any{
						"sender":   "inj1npvwllfr9dqr8erajqqr6s0vxnk2ak55re90dz",
						"contract": "inj1mdq8lej6n35lp977w9nvc7mglwc3tqh5cms42y",
						"msg":      `{"commit_solution":{"commitment":"lsKzENeCwdyWWUXEN6zbTwMl3Cg3G7wJJhgne/sJ/N8="}}`,
						"funds":    "0",
					},
				},
			},
			"sequence":       sequence,
			"timeout_height": "0",
		},
	}
}

func TestHash_Stable(t *testing.T) {
	td := buildSampleTypedData("35849")
	h1, err := Hash(td)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Hash(td)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("Hash is not stable across identical inputs: %x != %x", h1, h2)
	}
}

func TestHash_SensitiveToSequence(t *testing.T) {
	h1, err := Hash(buildSampleTypedData("1"))
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Hash(buildSampleTypedData("2"))
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("digest did not change when sequence changed")
	}
}

// S5 / property 6: sequence values above 2^53-1 must encode exactly, as
// a decimal string, with no float-style precision loss.
func TestHash_LargeSequenceNoPrecisionLoss(t *testing.T) {
	const big1 = "9007199254740993" // 2^53 + 1
	const big2 = "9007199254740994"
	h1, err := Hash(buildSampleTypedData(big1))
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Hash(buildSampleTypedData(big2))
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("adjacent large sequence values hashed identically - precision was lost")
	}
}

func TestEncodeType_Tx(t *testing.T) {
	got, err := encodeType(TxSchema, "Tx")
	if err != nil {
		t.Fatal(err)
	}
	want := "Tx(string account_number,string chain_id,Fee fee,string memo,Msg[] msgs,string sequence,string timeout_height)" +
		"Coin(string denom,string amount)" +
		"Fee(Coin[] amount,string gas)" +
		"Msg(string type,MsgValue value)" +
		"MsgValue(string sender,string contract,string msg,string funds)"
	if got != want {
		t.Fatalf("encodeType(Tx) =\n%s\nwant\n%s", got, want)
	}
}

func TestEncodeUint256_HexAndDecimalAgree(t *testing.T) {
	hex, err := encodeUint256("0x59f")
	if err != nil {
		t.Fatal(err)
	}
	dec, err := encodeUint256("1439")
	if err != nil {
		t.Fatal(err)
	}
	if hex != dec {
		t.Fatalf("hex and decimal encodings of the same value differ: %x != %x", hex, dec)
	}
}
