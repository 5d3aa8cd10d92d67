package shaders

import (
	_ "embed"
)

//go:embed gbuffer.wgsl
var GBufferWGSL string

//go:embed ambient.wgsl
var AmbientWGSL string

//go:embed pointlight.wgsl
var PointLightWGSL string

//go:embed forward.wgsl
var ForwardWGSL string

//go:embed sky.wgsl
var SkyWGSL string

//go:embed billboard.wgsl
var BillboardWGSL string
