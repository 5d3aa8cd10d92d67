package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lumen/deferred/shaders"
	"github.com/gekko3d/lumen/deferred/shading"
)

// G-buffer formats. Albedo fits in 8 bits; position keeps full precision.
// Together they stay within the 32 bytes per sample every adapter offers.
var gbufferFormats = [3]wgpu.TextureFormat{
	wgpu.TextureFormatRGBA8Unorm,
	wgpu.TextureFormatRGBA32Float,
	wgpu.TextureFormatRGBA16Float,
}

const depthFormat = wgpu.TextureFormatDepth32Float

var additiveBlend = &wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationAdd,
	},
}

var meshVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: meshVertexSize,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 24, ShaderLocation: 2},
	},
}

var quadVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: shading.QuadVertexSize,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 16, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32, Offset: 28, ShaderLocation: 2},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 32, ShaderLocation: 3},
	},
}

var billboardVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: billboardVertexSize,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 20, ShaderLocation: 2},
	},
}

type pipelineDesc struct {
	label        string
	code         string
	buffers      []wgpu.VertexBufferLayout
	targets      []wgpu.ColorTargetState
	topology     wgpu.PrimitiveTopology
	cull         wgpu.CullMode
	depthWrite   bool
	depthCompare wgpu.CompareFunction
}

func (d *Device) createPipeline(p pipelineDesc) (*wgpu.RenderPipeline, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          p.label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: p.code},
	})
	if err != nil {
		return nil, fmt.Errorf("shader module %s: %w", p.label, err)
	}
	defer module.Release()

	pipeline, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: p.label,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    p.buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets:    p.targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  p.cull,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: p.depthWrite,
			DepthCompare:      p.depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render pipeline %s: %w", p.label, err)
	}
	return pipeline, nil
}

func (d *Device) createPipelines() error {
	output := func(blend *wgpu.BlendState) []wgpu.ColorTargetState {
		return []wgpu.ColorTargetState{{
			Format:    d.config.Format,
			Blend:     blend,
			WriteMask: wgpu.ColorWriteMaskAll,
		}}
	}
	gbufferTargets := make([]wgpu.ColorTargetState, len(gbufferFormats))
	for i, f := range gbufferFormats {
		gbufferTargets[i] = wgpu.ColorTargetState{Format: f, WriteMask: wgpu.ColorWriteMaskAll}
	}

	descs := []struct {
		dst  **wgpu.RenderPipeline
		desc pipelineDesc
	}{
		{&d.surfacePipeline, pipelineDesc{
			label: "GBuffer Pipeline", code: shaders.GBufferWGSL,
			buffers: []wgpu.VertexBufferLayout{meshVertexLayout}, targets: gbufferTargets,
			topology: wgpu.PrimitiveTopologyTriangleList, cull: wgpu.CullModeBack,
			depthWrite: true, depthCompare: wgpu.CompareFunctionLess,
		}},
		{&d.ambientPipeline, pipelineDesc{
			label: "Ambient Pipeline", code: shaders.AmbientWGSL,
			targets:  output(nil),
			topology: wgpu.PrimitiveTopologyTriangleStrip, cull: wgpu.CullModeNone,
			depthCompare: wgpu.CompareFunctionAlways,
		}},
		{&d.lightPipeline, pipelineDesc{
			label: "Point Light Pipeline", code: shaders.PointLightWGSL,
			buffers: []wgpu.VertexBufferLayout{quadVertexLayout}, targets: output(additiveBlend),
			topology: wgpu.PrimitiveTopologyTriangleList, cull: wgpu.CullModeNone,
			depthCompare: wgpu.CompareFunctionLessEqual,
		}},
		{&d.forwardPipeline, pipelineDesc{
			label: "Forward Pipeline", code: shaders.ForwardWGSL,
			buffers: []wgpu.VertexBufferLayout{meshVertexLayout}, targets: output(nil),
			topology: wgpu.PrimitiveTopologyTriangleList, cull: wgpu.CullModeBack,
			depthWrite: true, depthCompare: wgpu.CompareFunctionLess,
		}},
		{&d.skyPipeline, pipelineDesc{
			label: "Sky Pipeline", code: shaders.SkyWGSL,
			targets:  output(nil),
			topology: wgpu.PrimitiveTopologyTriangleStrip, cull: wgpu.CullModeNone,
			depthCompare: wgpu.CompareFunctionLessEqual,
		}},
		{&d.billboardPipeline, pipelineDesc{
			label: "Billboard Pipeline", code: shaders.BillboardWGSL,
			buffers: []wgpu.VertexBufferLayout{billboardVertexLayout}, targets: output(additiveBlend),
			topology: wgpu.PrimitiveTopologyTriangleList, cull: wgpu.CullModeNone,
			depthCompare: wgpu.CompareFunctionLess,
		}},
	}
	for _, p := range descs {
		pipeline, err := d.createPipeline(p.desc)
		if err != nil {
			return err
		}
		*p.dst = pipeline
	}
	return nil
}
