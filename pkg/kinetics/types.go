// Package kinetics holds the data model shared by grouping, update, and
// sampling: species, reactions, subvolumes, and the per-method caches that
// keep propensities consistent under incremental updates.
package kinetics

import (
	"fmt"
	"time"

	"github.com/jihwankim/pssakit/pkg/crsampler"
	"github.com/jihwankim/pssakit/pkg/matrix"
)

// Method selects which sampling/grouping/update algorithm a DataModel uses.
// Carried as a tag rather than through interface dispatch — grouping,
// update, and sampling each switch on it once per call, matching the small
// closed set of methods the original engine supports.
type Method int

const (
	MethodDM Method = iota
	MethodPDM
	MethodPSSACR
)

func (m Method) String() string {
	switch m {
	case MethodDM:
		return "dm"
	case MethodPDM:
		return "pdm"
	case MethodPSSACR:
		return "pssacr"
	default:
		return "unknown"
	}
}

// ParseMethod parses the config/CLI spelling of a Method ("dm", "pdm",
// "pssacr").
func ParseMethod(s string) (Method, error) {
	switch s {
	case "dm":
		return MethodDM, nil
	case "pdm":
		return MethodPDM, nil
	case "pssacr":
		return MethodPSSACR, nil
	default:
		return 0, NewError(ErrBadConfig, fmt.Sprintf("unknown method %q, want one of dm, pdm, pssacr", s))
	}
}

// Boundary is the lattice boundary condition applied when picking a
// diffusion destination.
type Boundary int

const (
	BoundaryPeriodic Boundary = iota
	BoundaryAbsorbing
	BoundaryReflective
)

func (b Boundary) String() string {
	switch b {
	case BoundaryPeriodic:
		return "periodic"
	case BoundaryAbsorbing:
		return "absorbing"
	case BoundaryReflective:
		return "reflective"
	default:
		return "unknown"
	}
}

// ParseBoundary parses the config/CLI spelling of a Boundary ("periodic",
// "absorbing", "reflective").
func ParseBoundary(s string) (Boundary, error) {
	switch s {
	case "periodic", "":
		return BoundaryPeriodic, nil
	case "absorbing":
		return BoundaryAbsorbing, nil
	case "reflective":
		return BoundaryReflective, nil
	default:
		return 0, NewError(ErrBadConfig, fmt.Sprintf("unknown boundary %q", s))
	}
}

// GridConfig describes the discretised reaction volume's topology.
type GridConfig struct {
	Dims     []int
	Boundary Boundary
}

// DimsCount returns the number of spatial dimensions (0 for an unset grid).
func (g GridConfig) DimsCount() int { return len(g.Dims) }

// SubvolumeCount returns the product of the per-axis extents.
func (g GridConfig) SubvolumeCount() int {
	if len(g.Dims) == 0 {
		return 1
	}
	n := 1
	for _, d := range g.Dims {
		n *= d
	}
	return n
}

// CenterIndex returns the flat subvolume index of the grid's geometric
// centre: dims[d]/2 along each axis, mapped to a flat index with the same
// mixed-radix convention pkg/sampling uses for diffusion neighbours (axis 0
// fastest-varying). Used by grouping.Initialize's IPConcentrate strategy.
func (g GridConfig) CenterIndex() int {
	if len(g.Dims) == 0 {
		return 0
	}
	idx := 0
	mul := 1
	for _, d := range g.Dims {
		idx += (d / 2) * mul
		mul *= d
	}
	return idx
}

// Species is one chemical species in the network.
type Species struct {
	Name      string
	Index     int
	Initial   int64
	Diffusion float64 // D; 0 means non-diffusive
}

// SpeciesRef references a Species from within a Reaction's reactant or
// product list, carrying the stoichiometry at which it participates.
type SpeciesRef struct {
	Index         int
	Stoichiometry int64 // always >= 1; sign/role is implied by Reactants vs Products
	Reservoir     bool  // population held constant; never depleted or credited
	Constant      bool  // population never mutated by Update at all
}

// Reaction is either a chemical reaction (Diffusive == false) with ordered
// reactant and product species references, or a diffusion pseudo-reaction
// for exactly one species (Diffusive == true, rate == D / h^2).
type Reaction struct {
	Name      string
	Rate      float64
	Diffusive bool
	Species   int // diffusing species index, valid only when Diffusive

	Reactants []SpeciesRef
	Products  []SpeciesRef

	Delay     time.Duration
	Consuming bool // only meaningful when Delay > 0
}

// ReactantsCount returns the number of distinct reactant species references.
func (r *Reaction) ReactantsCount() int { return len(r.Reactants) }

// SpeciesReferencesCount returns reactants plus products.
func (r *Reaction) SpeciesReferencesCount() int { return len(r.Reactants) + len(r.Products) }

// Network is the parsed, method-agnostic reaction network — the input to
// Grouping's Preinitialize.
type Network struct {
	Species   []Species
	Reactions []Reaction
}

// PropensityIndex describes one cell of the partial-propensity matrix Π:
// its fixed topology (which reaction, which row/column) and the factor that
// turns Rate into the cell's current value given the live population
// vector. Built once by grouping.Preinitialize; values derived from it are
// recomputed by pkg/update whenever FactorSpecies' population changes.
//
// Π[row][col]'s value is Rate when FactorSpecies < 0; otherwise it is
// Rate times a combinatorial factor over population[FactorSpecies] at
// stoichiometry FactorStoich — HomoPartial when SelfFactor (FactorSpecies
// == row-1, a self-dependent unimolecular reaction), Hetero otherwise (the
// other reactant of a bimolecular reaction). The full propensity
// contribution of the cell is population[row-1]*value for row >= 1, or
// value alone for the reservoir row (row == 0).
type PropensityIndex struct {
	ReactionIndex int
	Row           int // 1-based species row in Π, or 0 for the reservoir row
	Col           int // column within that Π row

	Rate          float64
	FactorSpecies int   // -1 if the cell has no population-dependent factor
	FactorStoich  int64
	SelfFactor    bool // true: HomoPartial(pop[FactorSpecies], FactorStoich); false: Hetero(...)
}

// InitialPopulationStrategy selects how Grouping's Initialize distributes a
// species' initial amount across subvolumes.
type InitialPopulationStrategy int

const (
	IPDistribute InitialPopulationStrategy = iota
	IPConcentrate
	IPMultiply
	IPUserDefined
	IPDefault
)

func (s InitialPopulationStrategy) String() string {
	switch s {
	case IPDistribute:
		return "distribute"
	case IPConcentrate:
		return "concentrate"
	case IPMultiply:
		return "multiply"
	case IPUserDefined:
		return "user_defined"
	case IPDefault:
		return "default"
	default:
		return "unknown"
	}
}

// ParseInitialPopulationStrategy parses the config/CLI spelling of an
// InitialPopulationStrategy.
func ParseInitialPopulationStrategy(s string) (InitialPopulationStrategy, error) {
	switch s {
	case "distribute", "":
		return IPDistribute, nil
	case "concentrate":
		return IPConcentrate, nil
	case "multiply":
		return IPMultiply, nil
	case "user_defined":
		return IPUserDefined, nil
	case "default":
		return IPDefault, nil
	default:
		return 0, NewError(ErrBadConfig, fmt.Sprintf("unknown initial_population %q", s))
	}
}

// PopulationFunc installs a caller-defined initial population; population
// is indexed [subvolume][species].
type PopulationFunc func(dm *DataModel, population [][]int64)

// Subvolume is one cell of the discretised reaction volume: its population
// vector plus whichever method-specific propensity cache DataModel.Method
// selects.
type Subvolume struct {
	Population      []int64
	TotalPropensity float64

	// DM cache: dense propensity per reaction.
	PropDM []float64

	// PDM / PSSA-CR cache. Row 0 is the reservoir row; row i (i>=1) belongs
	// to species i-1. PartialProp topology (which reactions land in which
	// row) is shared across subvolumes via DataModel.RowTopology; only the
	// numeric values here are per-subvolume.
	PartialProp *matrix.Jagged[float64] // Π[row][col]
	RowSum      []float64               // λ[row]
	RowGroup    []float64               // σ[row]

	// PSSA-CR only.
	CRRows     []*crsampler.Sampler // crsdΠ[row], len == len(RowSum)
	CRRowGroup *crsampler.Sampler   // crsdΣ over rows
}
