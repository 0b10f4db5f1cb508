package material

import (
	"math"

	"github.com/avlen/go-bidir-renderer/pkg/bsdf"
	"github.com/avlen/go-bidir-renderer/pkg/core"
)

// GenericParameters are the artist-facing controls of the uber material.
// Nil texture sources fall back to the zero value of the parameter, except
// BaseColor which defaults to mid gray and IndexOfRefraction which defaults
// to 1.45.
type GenericParameters struct {
	BaseColor             ColorSource
	Roughness             ScalarSource
	Anisotropic           float64
	Metallic              float64
	SpecularTintStrength  float64
	IndexOfRefraction     float64
	SpecularTransmittance float64
	DiffuseTransmittance  float64

	// Thin marks the surface as a two-sided sheet: transmission passes
	// straight through a re-roughened interface instead of bending, and the
	// diffuse transmittance lobe becomes active
	Thin bool
}

// Generic is the uber material. It builds a set of weighted lobes per shading
// point and exposes the aggregate BSDF with exact forward and reverse pdfs.
type Generic struct {
	params GenericParameters
}

// NewGeneric creates an uber material from its parameters
func NewGeneric(params GenericParameters) *Generic {
	if params.BaseColor == nil {
		params.BaseColor = SolidColor{Value: core.NewVec3(0.5, 0.5, 0.5)}
	}
	if params.Roughness == nil {
		params.Roughness = SolidScalar{Value: 0.5}
	}
	if params.IndexOfRefraction <= 0 {
		params.IndexOfRefraction = 1.45
	}
	return &Generic{params: params}
}

// NewDiffuse creates a fully rough dielectric with the given base color
func NewDiffuse(color core.Vec3) *Generic {
	return NewGeneric(GenericParameters{
		BaseColor: SolidColor{Value: color},
		Roughness: SolidScalar{Value: 1},
	})
}

// weightedLobe pairs a scattering lobe with its selection importance. The
// importance may depend on the cosine of the direction the scattering starts
// from, which lets reflection and transmission split by Fresnel.
type weightedLobe struct {
	lobe       bsdf.Lobe
	importance func(cosTheta float64) float64
}

func constImportance(w float64) func(float64) float64 {
	return func(float64) float64 { return w }
}

// closure is the material evaluated at one shading point
type closure struct {
	entries []weightedLobe
}

// buildClosure evaluates the textures and assembles the active lobes
func (g *Generic) buildClosure(hit *core.SurfacePoint) closure {
	p := &g.params
	baseColor := p.BaseColor.Color(hit.UV)
	roughness := clamp01(p.Roughness.Scalar(hit.UV))
	ior := p.IndexOfRefraction

	luminance := baseColor.Luminance()
	colorTint := core.White
	if luminance > 0 {
		colorTint = baseColor.Multiply(1 / luminance)
	}
	specularTint := core.White.Lerp(colorTint, p.SpecularTintStrength)

	diffuseWeight := (1 - p.Metallic) * (1 - p.SpecularTransmittance)

	aspect := math.Sqrt(1 - 0.9*clamp01(p.Anisotropic))
	alphaX := math.Max(0.001, roughness*roughness/aspect)
	alphaY := math.Max(0.001, roughness*roughness*aspect)
	distribution := bsdf.NewTrowbridgeReitz(alphaX, alphaY)

	// reflectance at normal incidence: tinted dielectric response blended
	// towards the base color as the surface becomes metallic
	r0 := specularTint.Multiply(bsdf.SchlickR0FromEta(ior)).Lerp(baseColor, p.Metallic)

	var entries []weightedLobe

	// retro and diffuse split the diffuse weight equally; on a thin surface
	// diffuse transmission takes its share first
	if diffuseWeight > 0 {
		diffuseTint := baseColor.Multiply(diffuseWeight)
		diffuseShare := diffuseWeight / 2
		transShare := 0.0
		if p.Thin && p.DiffuseTransmittance > 0 {
			transShare = diffuseWeight * p.DiffuseTransmittance
			diffuseShare = (diffuseWeight - transShare) / 2
		}

		entries = append(entries,
			weightedLobe{
				lobe:       bsdf.DisneyDiffuse{Reflectance: diffuseTint},
				importance: constImportance(diffuseShare),
			},
			weightedLobe{
				lobe:       bsdf.DisneyRetro{Reflectance: diffuseTint, Roughness: roughness},
				importance: constImportance(diffuseShare),
			})

		if transShare > 0 {
			transTint := baseColor.Multiply(transShare)
			entries = append(entries, weightedLobe{
				lobe:       bsdf.DiffuseTransmission{Transmittance: transTint},
				importance: constImportance(transShare),
			})
		}
	}

	// the specular pair shares the remaining weight, split by the Fresnel
	// luminance at the direction the scattering starts from
	specularWeight := 1 - diffuseWeight
	metallic := p.Metallic
	fresnelLum := func(cosTheta float64) float64 {
		dielectric := bsdf.FresnelDielectric(cosTheta, 1, ior)
		schlick := bsdf.FrSchlick(r0, cosTheta).Luminance()
		return lerp(dielectric, schlick, metallic)
	}

	reflImportance := constImportance(specularWeight)
	if p.SpecularTransmittance > 0 {
		reflImportance = func(cosTheta float64) float64 {
			return specularWeight * fresnelLum(cosTheta)
		}
	}
	entries = append(entries, weightedLobe{
		lobe: bsdf.MicrofacetReflection{
			Tint:         core.White,
			Distribution: distribution,
			Fresnel:      bsdf.DisneyFresnel{R0: r0, Metallic: metallic, Eta: ior},
		},
		importance: reflImportance,
	})

	if p.SpecularTransmittance > 0 {
		transDistribution := distribution
		if p.Thin {
			// thin surfaces look less rough in transmission; re-roughen so
			// the sheet scatters like a single interface of the base medium
			scaled := clamp01((0.65*ior - 0.35) * roughness)
			transDistribution = bsdf.NewTrowbridgeReitz(
				math.Max(0.001, scaled*scaled/aspect),
				math.Max(0.001, scaled*scaled*aspect))
		}
		transTint := core.NewVec3(
			math.Sqrt(baseColor.X), math.Sqrt(baseColor.Y), math.Sqrt(baseColor.Z),
		).Multiply(p.SpecularTransmittance)
		entries = append(entries, weightedLobe{
			lobe: bsdf.MicrofacetTransmission{
				Tint:         transTint,
				Distribution: transDistribution,
				EtaOutside:   1,
				EtaInside:    ior,
			},
			importance: func(cosTheta float64) float64 {
				return specularWeight * (1 - fresnelLum(cosTheta))
			},
		})
	}

	return closure{entries: entries}
}

// selectionWeights returns the normalized probability of picking each lobe
// when scattering starts along the given shading-space direction
func (c *closure) selectionWeights(from core.Vec3) []float64 {
	cosTheta := core.AbsCosTheta(from)
	weights := make([]float64, len(c.entries))
	total := 0.0
	for i, e := range c.entries {
		weights[i] = math.Max(0, e.importance(cosTheta))
		total += weights[i]
	}
	if total <= 0 {
		for i := range weights {
			weights[i] = 1 / float64(len(weights))
		}
		return weights
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

func (c *closure) evaluate(out, in core.Vec3, isOnLightSubpath bool) core.Vec3 {
	sum := core.Black
	for _, e := range c.entries {
		sum = sum.Add(e.lobe.Evaluate(out, in, isOnLightSubpath))
	}
	return sum
}

// pdf returns the aggregate sampling densities. The forward density uses the
// selection weights seen from out, the reverse density those seen from in.
func (c *closure) pdf(out, in core.Vec3, isOnLightSubpath bool) (float64, float64) {
	weightsFwd := c.selectionWeights(out)
	weightsRev := c.selectionWeights(in)
	var forward, reverse float64
	for i, e := range c.entries {
		f, r := e.lobe.Pdf(out, in, isOnLightSubpath)
		forward += weightsFwd[i] * f
		reverse += weightsRev[i] * r
	}
	return forward, reverse
}

// Evaluate implements core.Material
func (g *Generic) Evaluate(hit *core.SurfacePoint, outDir, inDir core.Vec3, isOnLightSubpath bool) core.Vec3 {
	frame := core.NewFrame(hit.ShadingNormal)
	c := g.buildClosure(hit)
	return c.evaluate(frame.WorldToShading(outDir), frame.WorldToShading(inDir), isOnLightSubpath)
}

// EvaluateWithCosine implements core.Material
func (g *Generic) EvaluateWithCosine(hit *core.SurfacePoint, outDir, inDir core.Vec3, isOnLightSubpath bool) core.Vec3 {
	frame := core.NewFrame(hit.ShadingNormal)
	c := g.buildClosure(hit)
	in := frame.WorldToShading(inDir)
	return c.evaluate(frame.WorldToShading(outDir), in, isOnLightSubpath).Multiply(core.AbsCosTheta(in))
}

// Pdf implements core.Material
func (g *Generic) Pdf(hit *core.SurfacePoint, outDir, inDir core.Vec3, isOnLightSubpath bool) (float64, float64) {
	frame := core.NewFrame(hit.ShadingNormal)
	c := g.buildClosure(hit)
	return c.pdf(frame.WorldToShading(outDir), frame.WorldToShading(inDir), isOnLightSubpath)
}

// Sample implements core.Material. The first primary sample dimension selects
// the lobe and is rescaled before being handed to it, so a single Vec2 drives
// the full decision.
func (g *Generic) Sample(hit *core.SurfacePoint, outDir core.Vec3, isOnLightSubpath bool, u core.Vec2) (core.BsdfSample, bool) {
	frame := core.NewFrame(hit.ShadingNormal)
	out := frame.WorldToShading(outDir)

	c := g.buildClosure(hit)
	if len(c.entries) == 0 {
		return core.BsdfSample{}, false
	}
	weights := c.selectionWeights(out)

	// pick a lobe by CDF inversion, rescaling u.X into the picked interval
	pick := len(weights) - 1
	cdf := 0.0
	remapped := u
	for i, w := range weights {
		if u.X < cdf+w || i == len(weights)-1 {
			pick = i
			if w > 0 {
				// keep the rescaled sample strictly inside [0, 1)
				remapped.X = math.Max(0, math.Min((u.X-cdf)/w, 1-1e-12))
			}
			break
		}
		cdf += w
	}

	in, ok := c.entries[pick].lobe.Sample(out, isOnLightSubpath, remapped)
	if !ok {
		return core.BsdfSample{}, false
	}

	forward, reverse := c.pdf(out, in, isOnLightSubpath)
	if forward <= 0 {
		return core.BsdfSample{}, false
	}

	value := c.evaluate(out, in, isOnLightSubpath)
	weight := value.Multiply(core.AbsCosTheta(in) / forward)
	if !weight.IsFinite() {
		return core.BsdfSample{}, false
	}

	return core.BsdfSample{
		Direction:  frame.ShadingToWorld(in),
		Pdf:        forward,
		PdfReverse: reverse,
		Weight:     weight,
	}, true
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}
