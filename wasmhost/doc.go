// Package wasmhost exposes the tokenizer functions to WebAssembly guests as
// the wazero host module "tokenizers".
//
// The imports carry the same names and struct layouts as the C library,
// with 4-byte words. Arguments are guest pointers; transferred results are
// allocated in guest memory through the guest's cabi_realloc export and
// released by the guest calling the matching free import:
//
//	h := wasmhost.New(engine.NewLoader(hubClient))
//	if _, err := h.Instantiate(ctx, runtime); err != nil {
//		return err
//	}
//	defer h.Close()
//
// Handles are tracked per guest module. Call Release when a guest closes to
// drop the tokenizers it still holds.
package wasmhost
