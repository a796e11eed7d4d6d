package model

// Column labels, in record field order.
const (
	LabelHost         = "Host"
	LabelRank         = "MPI-Rank"
	LabelThread       = "OMP-Thread"
	LabelCPU          = "CPU"
	LabelNUMANode     = "NUMA-Node"
	LabelAffinity     = "CPU-Affinity"
	LabelAccelerators = "Accelerators"
)

// Capabilities is resolved once at process start and selects which columns
// exist and which are displayed for the whole run.
type Capabilities struct {
	// Group is set when the process runs inside a distributed process group.
	Group bool
	// Placement is set when the platform can report the current CPU and the
	// affinity mask of a thread.
	Placement bool
	// NUMA is set when the platform exposes NUMA topology.
	NUMA bool
	// Accelerators adds the accelerator column to every record.
	Accelerators bool
}

// Arity is the number of fields each record carries under these capabilities.
func (c Capabilities) Arity() int {
	if c.Accelerators {
		return AcceleratorArity
	}
	return BaseArity
}

// Headers is the column-label schema. An empty label marks a column that is
// collected but not displayed.
type Headers []string

// NewHeaders builds the schema from the capability set and the thread count
// observed across the group. The thread column is hidden for single-threaded
// runs.
func NewHeaders(c Capabilities, maxThreads int) Headers {
	h := Headers{
		LabelHost,
		when(c.Group, LabelRank),
		when(maxThreads > 1, LabelThread),
		when(c.Placement, LabelCPU),
		when(c.Placement && c.NUMA, LabelNUMANode),
		when(c.Placement, LabelAffinity),
	}
	if c.Accelerators {
		h = append(h, LabelAccelerators)
	}
	return h
}

// Displayed reports whether column i is printed.
func (h Headers) Displayed(i int) bool {
	return i >= 0 && i < len(h) && h[i] != ""
}

func when(ok bool, label string) string {
	if ok {
		return label
	}
	return ""
}
