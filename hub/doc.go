// Package hub resolves named pretrained tokenizers to local files.
//
// A name such as "bert-base-uncased" or "org/model" is looked up in the
// cache directory first:
//
//	<cacheDir>/<org>--<model>/<revision>/tokenizer.json
//
// and otherwise downloaded from <endpoint>/<name>/resolve/<revision>/tokenizer.json.
// Downloads land in a ".tmp" sibling and are renamed into place, so a
// partially written file is never picked up as a cache hit.
package hub
