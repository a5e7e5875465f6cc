package dfapi

import (
	"github.com/ipld/go-ipld-prime/schema"

	_ "github.com/ipld/go-ipld-prime/codec/dagcbor" // side-effecting import; registers a codec.
	_ "github.com/ipld/go-ipld-prime/codec/json"    // side-effecting import; registers a codec.
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
)

// This file is for IPLD-related helpers and constants.
// (For example, the linksystem: that's legitimately a global, because it's just for plugin config.)

var LinkSystem = cidlink.DefaultLinkSystem()

// TypeSystem describes all our API data types and their representation strategies in IPLD Schema form.
// Each file in this package accumulates the types it declares into it from an init function.
var TypeSystem = func() *schema.TypeSystem {
	ts := new(schema.TypeSystem)
	ts.Init()
	ts.Accumulate(schema.SpawnString("String"))
	ts.Accumulate(schema.SpawnInt("Int"))
	ts.Accumulate(schema.SpawnBool("Bool"))
	return ts
}()
