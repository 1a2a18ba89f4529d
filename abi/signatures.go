package abi

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"
)

// Param is one named operation parameter.
type Param struct {
	Type wit.Type
	Name string
}

// Signature describes one boundary operation in WIT terms. Nullable
// results are option<...>; a nil Result means the operation returns nothing.
type Signature struct {
	Result wit.Type
	Name   string
	Doc    string
	Params []Param
}

func named(name string, kind wit.TypeDefKind) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: kind}
}

var (
	tokenizerRes = named("tokenizer", &wit.Resource{})
	encodingRes  = named("encoding", &wit.Resource{})

	ownTokenizer    = &wit.TypeDef{Kind: &wit.Own{Type: tokenizerRes}}
	borrowTokenizer = &wit.TypeDef{Kind: &wit.Borrow{Type: tokenizerRes}}
	ownEncoding     = &wit.TypeDef{Kind: &wit.Own{Type: encodingRes}}
	borrowEncoding  = &wit.TypeDef{Kind: &wit.Borrow{Type: encodingRes}}

	optString = &wit.TypeDef{Kind: &wit.Option{Type: wit.String{}}}

	pretrainedParams = named("pretrained-params", &wit.Record{
		Fields: []wit.Field{
			{Name: "revision", Type: optString},
			{Name: "token", Type: optString},
		},
	})

	tokenOffset = named("token-offset", &wit.Record{
		Fields: []wit.Field{
			{Name: "start", Type: wit.U64{}},
			{Name: "end", Type: wit.U64{}},
		},
	})
)

func option(t wit.Type) wit.Type { return &wit.TypeDef{Kind: &wit.Option{Type: t}} }
func list(t wit.Type) wit.Type   { return &wit.TypeDef{Kind: &wit.List{Type: t}} }

// Signatures returns the boundary operations in export order.
func Signatures() []Signature {
	return []Signature{
		{
			Name:   OpFromPretrained,
			Doc:    "Resolve a named model (downloading it if needed) and load it.",
			Params: []Param{{Name: "name", Type: wit.String{}}, {Name: "params", Type: option(pretrainedParams)}},
			Result: option(ownTokenizer),
		},
		{
			Name:   OpFromBuffer,
			Doc:    "Load a serialized tokenizer definition. Length must be > 0.",
			Params: []Param{{Name: "buffer", Type: list(wit.U8{})}},
			Result: option(ownTokenizer),
		},
		{
			Name:   OpFromFile,
			Doc:    "Load a tokenizer definition from a file.",
			Params: []Param{{Name: "path", Type: wit.String{}}},
			Result: option(ownTokenizer),
		},
		{
			Name:   OpFreeTokenizer,
			Doc:    "Release a tokenizer. Null is a no-op.",
			Params: []Param{{Name: "tokenizer", Type: option(ownTokenizer)}},
		},
		{
			Name: OpEncode,
			Doc:  "Tokenize text.",
			Params: []Param{
				{Name: "tokenizer", Type: borrowTokenizer},
				{Name: "text", Type: wit.String{}},
				{Name: "add-special-tokens", Type: wit.Bool{}},
			},
			Result: option(ownEncoding),
		},
		{
			Name: OpDecode,
			Doc:  "Turn ids back into text. Length must be > 0.",
			Params: []Param{
				{Name: "tokenizer", Type: borrowTokenizer},
				{Name: "ids", Type: list(wit.U32{})},
				{Name: "skip-special-tokens", Type: wit.Bool{}},
			},
			Result: option(wit.String{}),
		},
		{
			Name:   OpFreeString,
			Doc:    "Release a decoded string. Null is a no-op.",
			Params: []Param{{Name: "text", Type: option(wit.String{})}},
		},
		{
			Name:   OpEncodingLength,
			Doc:    "Number of tokens, 0 for null.",
			Params: []Param{{Name: "encoding", Type: borrowEncoding}},
			Result: wit.U64{},
		},
		{
			Name:   OpEncodingIDs,
			Doc:    "Borrowed token ids.",
			Params: []Param{{Name: "encoding", Type: borrowEncoding}},
			Result: option(list(wit.U32{})),
		},
		{
			Name:   OpEncodingTokens,
			Doc:    "Transferred token strings; release with " + OpFreeStringArray + ".",
			Params: []Param{{Name: "encoding", Type: borrowEncoding}},
			Result: option(list(wit.String{})),
		},
		{
			Name:   OpEncodingTypeIDs,
			Doc:    "Borrowed type ids.",
			Params: []Param{{Name: "encoding", Type: borrowEncoding}},
			Result: option(list(wit.U32{})),
		},
		{
			Name:   OpEncodingSpecialMask,
			Doc:    "Borrowed special tokens mask.",
			Params: []Param{{Name: "encoding", Type: borrowEncoding}},
			Result: option(list(wit.U32{})),
		},
		{
			Name:   OpEncodingAttention,
			Doc:    "Borrowed attention mask.",
			Params: []Param{{Name: "encoding", Type: borrowEncoding}},
			Result: option(list(wit.U32{})),
		},
		{
			Name:   OpEncodingOffsets,
			Doc:    "Borrowed character offsets.",
			Params: []Param{{Name: "encoding", Type: borrowEncoding}},
			Result: option(list(tokenOffset)),
		},
		{
			Name:   OpEncodingOverflowing,
			Doc:    "Transferred overflow fragments; release with " + OpFreeEncodingArray + ".",
			Params: []Param{{Name: "encoding", Type: borrowEncoding}},
			Result: option(list(ownEncoding)),
		},
		{
			Name:   OpEncodingFree,
			Doc:    "Release an encoding returned by " + OpEncode + ". Null is a no-op.",
			Params: []Param{{Name: "encoding", Type: option(ownEncoding)}},
		},
		{
			Name:   OpFreeStringArray,
			Doc:    "Release a token array and every string in it.",
			Params: []Param{{Name: "strings", Type: option(list(wit.String{}))}},
		},
		{
			Name:   OpFreeEncodingArray,
			Doc:    "Release an overflow array and every encoding in it.",
			Params: []Param{{Name: "encodings", Type: option(list(ownEncoding))}},
		},
	}
}

// Lookup finds a signature by operation name.
func Lookup(name string) (Signature, bool) {
	for _, sig := range Signatures() {
		if sig.Name == name {
			return sig, true
		}
	}
	return Signature{}, false
}

// CParams returns the number of word arguments the C and wasm exports take.
// A list argument is passed as pointer and length, and a list result adds a
// length out-parameter.
func (s Signature) CParams() int {
	n := 0
	for _, p := range s.Params {
		n++
		if isList(p.Type) {
			n++
		}
	}
	if s.Result != nil && isList(s.Result) {
		n++
	}
	return n
}

func isList(t wit.Type) bool {
	td, ok := t.(*wit.TypeDef)
	if !ok {
		return false
	}
	switch k := td.Kind.(type) {
	case *wit.List:
		return true
	case *wit.Option:
		return isList(k.Type)
	}
	return false
}

// String renders the signature as a WIT-style function type.
func (s Signature) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString(": func(")
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(TypeString(p.Type))
	}
	b.WriteByte(')')
	if s.Result != nil {
		b.WriteString(" -> ")
		b.WriteString(TypeString(s.Result))
	}
	return b.String()
}

// TypeString renders a WIT type the way it is written in WIT source.
func TypeString(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.U32:
		return "u32"
	case wit.U64:
		return "u64"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch k := v.Kind.(type) {
		case *wit.List:
			return "list<" + TypeString(k.Type) + ">"
		case *wit.Option:
			return "option<" + TypeString(k.Type) + ">"
		case *wit.Own:
			return "own<" + TypeString(k.Type) + ">"
		case *wit.Borrow:
			return "borrow<" + TypeString(k.Type) + ">"
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}
