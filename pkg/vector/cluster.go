package vector

import (
	"math"
	"math/rand"

	"github.com/codelens-dev/codelens/pkg/ids"
	"github.com/codelens-dev/codelens/pkg/xerrors"
)

const (
	maxKMeansIterations  = 100
	convergenceTolerance = 1e-4
	clusterEpsilon       = 1e-10
)

// ClusterResult is the outcome of building an IVF-Flat index over a vector
// set: a centroid per cluster plus the cluster each input vector landed in.
type ClusterResult struct {
	Centroids   [][]float32
	Assignments []ids.ClusterId
	Iterations  int
}

// ChooseK picks the IVF-Flat cluster count for n vectors: ceil(sqrt(n)),
// clamped to [1, 100].
func ChooseK(n int) int {
	if n <= 0 {
		return 1
	}
	k := int(math.Ceil(math.Sqrt(float64(n))))
	if k < 1 {
		k = 1
	}
	if k > 100 {
		k = 100
	}
	if k > n {
		k = n
	}
	return k
}

// BuildClusters runs k-means++ initialisation followed by Lloyd's algorithm
// over cosine similarity, returning centroids and per-vector assignments.
func BuildClusters(vectors [][]float32, k int) (*ClusterResult, error) {
	if len(vectors) == 0 {
		return nil, xerrors.New(xerrors.ClusteringFailed, "provide at least one vector to cluster", "empty vector set")
	}
	if k <= 0 || k > len(vectors) {
		return nil, xerrors.New(xerrors.ClusteringFailed, "choose k between 1 and len(vectors)", "invalid cluster count %d", k)
	}
	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim {
			return nil, xerrors.New(xerrors.DimensionMismatch, "ensure all vectors share the same embedding dimension", "mixed vector dimensions in clustering input")
		}
	}

	centroids, err := initCentroidsKMeansPlusPlus(vectors, k)
	if err != nil {
		return nil, err
	}

	assignments := make([]ids.ClusterId, len(vectors))
	for i := range assignments {
		assignments[i] = ids.ClusterId(1)
	}

	iterations := 0
	for {
		iterations++

		newAssignments := make([]ids.ClusterId, len(vectors))
		for i, v := range vectors {
			newAssignments[i] = assignToNearestCentroid(v, centroids)
		}

		converged := true
		for i := range newAssignments {
			if newAssignments[i] != assignments[i] {
				converged = false
				break
			}
		}
		assignments = newAssignments

		if converged || iterations >= maxKMeansIterations {
			break
		}

		newCentroids := updateCentroids(vectors, assignments, k)
		movement := centroidMovement(centroids, newCentroids)
		centroids = newCentroids

		if movement < convergenceTolerance {
			break
		}
	}

	return &ClusterResult{Centroids: centroids, Assignments: assignments, Iterations: iterations}, nil
}

func assignToNearestCentroid(v []float32, centroids [][]float32) ids.ClusterId {
	best := float32(math.Inf(-1))
	bestIdx := 0
	for i, c := range centroids {
		sim := CosineSimilarity(v, c)
		if sim > best {
			best = sim
			bestIdx = i
		}
	}
	return ids.ClusterId(bestIdx + 1)
}

func updateCentroids(vectors [][]float32, assignments []ids.ClusterId, k int) [][]float32 {
	dim := len(vectors[0])
	sums := make([][]float32, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float32, dim)
	}

	for i, v := range vectors {
		idx := int(assignments[i]) - 1
		for d, val := range v {
			sums[idx][d] += val
		}
		counts[idx]++
	}

	for i := range sums {
		if counts[i] == 0 {
			sums[i] = normalizedCopy(vectors[rand.Intn(len(vectors))])
			continue
		}
		for d := range sums[i] {
			sums[i][d] /= float32(counts[i])
		}
		normalize(sums[i])
	}
	return sums
}

func centroidMovement(old, new_ [][]float32) float32 {
	var total float32
	for i := range old {
		total += 1.0 - CosineSimilarity(old[i], new_[i])
	}
	return total / float32(len(old))
}

func initCentroidsKMeansPlusPlus(vectors [][]float32, k int) ([][]float32, error) {
	centroids := make([][]float32, 0, k)
	first := rand.Intn(len(vectors))
	centroids = append(centroids, normalizedCopy(vectors[first]))

	for len(centroids) < k {
		distances := make([]float32, len(vectors))
		var total float32
		for i, v := range vectors {
			minDist := float32(math.MaxFloat32)
			for _, c := range centroids {
				d := 1.0 - CosineSimilarity(v, c)
				if d < minDist {
					minDist = d
				}
			}
			distances[i] = minDist * minDist
			total += distances[i]
		}

		if total < clusterEpsilon {
			break
		}

		target := rand.Float32() * total
		var cumulative float32
		added := false
		for i, d := range distances {
			cumulative += d
			if cumulative >= target {
				centroids = append(centroids, normalizedCopy(vectors[i]))
				added = true
				break
			}
		}
		if !added {
			centroids = append(centroids, normalizedCopy(vectors[len(vectors)-1]))
		}
	}

	if len(centroids) != k {
		return nil, xerrors.New(xerrors.ClusteringFailed, "retry clustering; input vectors may be degenerate", "k-means++ initialisation produced %d of %d centroids", len(centroids), k)
	}
	return centroids, nil
}

// CosineSimilarity returns the cosine similarity of a and b, or 0 if either
// is a zero vector.
func CosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

func normalize(v []float32) {
	var sumSq float32
	for _, x := range v {
		sumSq += x * x
	}
	norm := float32(math.Sqrt(float64(sumSq)))
	if norm <= clusterEpsilon {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}

func normalizedCopy(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	normalize(out)
	return out
}
