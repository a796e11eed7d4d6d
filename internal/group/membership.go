package group

import (
	"fmt"
	"strconv"
	"strings"

	"xthi/internal/model"
)

// Membership is this process's identity within the group.
type Membership struct {
	Launcher  string
	Rank      int
	Size      int
	LocalRank int
	LocalSize int
}

type launcher struct {
	name      string
	rank      string
	size      string
	localRank string
	localSize string
}

// Launchers are consulted in order; the first whose rank variable is set wins.
var launchers = []launcher{
	{"xthi", "XTHI_RANK", "XTHI_SIZE", "XTHI_LOCAL_RANK", "XTHI_LOCAL_SIZE"},
	{"openmpi", "OMPI_COMM_WORLD_RANK", "OMPI_COMM_WORLD_SIZE", "OMPI_COMM_WORLD_LOCAL_RANK", "OMPI_COMM_WORLD_LOCAL_SIZE"},
	{"pmix", "PMIX_RANK", "PMIX_SIZE", "PMIX_LOCAL_RANK", "PMIX_LOCAL_SIZE"},
	{"hydra", "PMI_RANK", "PMI_SIZE", "MPI_LOCALRANKID", "MPI_LOCALNRANKS"},
	{"slurm", "SLURM_PROCID", "SLURM_NTASKS", "SLURM_LOCALID", "SLURM_NTASKS_PER_NODE"},
}

// DetectMembership resolves rank and size from the launcher environment. The
// boolean is false when no launcher variables are present, meaning the
// process runs without a group.
func DetectMembership(getenv func(string) string) (Membership, bool, error) {
	for _, l := range launchers {
		rankValue := strings.TrimSpace(getenv(l.rank))
		if rankValue == "" {
			continue
		}
		rank, err := strconv.Atoi(rankValue)
		if err != nil {
			return Membership{}, false, fmt.Errorf("%s: parse %s=%q: %w", l.name, l.rank, rankValue, err)
		}
		sizeValue := strings.TrimSpace(getenv(l.size))
		size, err := strconv.Atoi(sizeValue)
		if err != nil {
			return Membership{}, false, fmt.Errorf("%s: parse %s=%q: %w", l.name, l.size, sizeValue, err)
		}
		if size < 1 || rank < 0 || rank >= size {
			return Membership{}, false, fmt.Errorf("%s: rank %d outside group of size %d", l.name, rank, size)
		}
		return Membership{
			Launcher:  l.name,
			Rank:      rank,
			Size:      size,
			LocalRank: optionalInt(getenv(l.localRank)),
			LocalSize: optionalInt(getenv(l.localSize)),
		}, true, nil
	}
	return Membership{}, false, nil
}

func optionalInt(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return model.Unavailable
	}
	return n
}
