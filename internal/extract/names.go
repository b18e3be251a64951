package extract

import "detgeom/pkg/tracker"

// Naming building blocks for emitted records. Downstream selectors match
// volumes by these names, so they are part of the output contract.
const (
	layerPrefix        = "Layer"
	rodPrefix          = "Rod"
	ringPrefix         = "Ring"
	discPrefix         = "Disc"
	barrelModulePrefix = "BModule"
	endcapModulePrefix = "EModule"

	waferSuffix = "Wafer"
	lowerTag    = "Lower"
	upperTag    = "Upper"

	psPixelActiveSuffix = "PSPixelActive"
	psStripActiveSuffix = "PSStripActive"
	ssActiveSuffix      = "2SActive"

	plusSuffix  = "Plus"
	minusSuffix = "Minus"
	coneSuffix  = "Cone"
	tubeSuffix  = "Tub"

	servicePrefix          = "Service"
	supportPrefix          = "Support"
	serviceCompositePrefix = "ServiceComposite"
	supportCompositePrefix = "SupportComposite"
	hybridCompositePrefix  = "HybridComposite"
	stereoRotationPrefix   = "Stereo"

	materialAir = "Air"
)

// Fixed rotation names shared by all passes.
const (
	rotModuleInRod        = "ModuleInRod"
	rotFlippedModuleInRod = "FlippedModuleInRod"
	rotFlip               = "FlipY180"
)

// Replication algorithm identifiers understood by the serializer.
const (
	phiAltAlgo      = "TrackerPhiAltAlgo"
	trackerRingAlgo = "TrackerRingAlgo"
)

// Replication algorithm parameter keys.
const (
	paramChild       = "ChildName"
	paramTilt        = "Tilt"
	paramStartAngle  = "StartAngle"
	paramRangeAngle  = "RangeAngle"
	paramRadiusIn    = "RadiusIn"
	paramRadiusOut   = "RadiusOut"
	paramRadius      = "Radius"
	paramZPosition   = "ZPosition"
	paramNumber      = "Number"
	paramNMods       = "N"
	paramStartCopyNo = "StartCopyNo"
	paramIncrCopyNo  = "IncrCopyNo"
	paramCenter      = "Center"
	paramIsZPlus     = "IsZPlus"
	paramTiltAngle   = "TiltAngle"
	paramIsFlipped   = "IsFlipped"
)

// Topology selector identifiers.
const (
	structureKey = "TkDDDStructure"

	selLayer       = "LayerPar"
	selRod         = "RodPar"
	selBarrelStack = "BarrelStackPar"
	selBarrelDet   = "BarrelDetPar"
	selWheel       = "WheelPar"
	selRing        = "RingPar"
	selEndcapStack = "EndcapStackPar"
	selEndcapDet   = "EndcapDetPar"

	structLayer       = "OTLayer"
	structRod         = "OTRod"
	structBarrelStack = "OTBarrelStack"
	structBarrelDet   = "OTBarrelDet"
	structWheel       = "OTWheel"
	structRing        = "OTRing"
	structEndcapStack = "OTEndcapStack"
	structEndcapDet   = "OTEndcapDet"
)

// categoryTag maps an inactive-volume category to the short tag embedded in
// its composite material name.
func categoryTag(c tracker.Category) string {
	switch c {
	case tracker.CategoryBarrelService:
		return "BSer"
	case tracker.CategoryEndcapService:
		return "ESer"
	case tracker.CategoryBarrelSupport:
		return "BSup"
	case tracker.CategoryTubeSupport:
		return "TSup"
	case tracker.CategoryUserSupport:
		return "USup"
	case tracker.CategoryOuterSupport:
		return "OSup"
	case tracker.CategoryEndcapSupport:
		return "ESup"
	default:
		return "Misc"
	}
}
