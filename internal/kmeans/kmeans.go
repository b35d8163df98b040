package kmeans

import (
	"math"
	"sort"

	"chromavue/internal/video"
)

// Cluster is one group of similar colors.
type Cluster struct {
	Center video.ColorSample
	Size   int
}

// Dominant clusters colors into at most k groups for up to iterations rounds
// and returns the non-empty clusters, largest first. Centers are seeded from
// evenly spaced samples, so the result only depends on the input.
func Dominant(colors []video.ColorSample, k, iterations int) []Cluster {
	if len(colors) == 0 || k <= 0 {
		return nil
	}
	if k > len(colors) {
		k = len(colors)
	}

	centers := seedCenters(colors, k)
	assignments := make([]int, len(colors))

	for iter := 0; iter < iterations; iter++ {
		for i, c := range colors {
			assignments[i] = nearest(c, centers)
		}

		sums := make([][3]float64, k)
		counts := make([]int, k)
		for i, a := range assignments {
			sums[a][0] += float64(colors[i].R)
			sums[a][1] += float64(colors[i].G)
			sums[a][2] += float64(colors[i].B)
			counts[a]++
		}

		converged := true
		for i := range centers {
			if counts[i] == 0 {
				continue
			}
			next := [3]float64{
				sums[i][0] / float64(counts[i]),
				sums[i][1] / float64(counts[i]),
				sums[i][2] / float64(counts[i]),
			}
			for c := 0; c < 3; c++ {
				if math.Abs(centers[i][c]-next[c]) > 1.0 {
					converged = false
				}
			}
			centers[i] = next
		}

		if converged {
			break
		}
	}

	sizes := make([]int, k)
	for _, c := range colors {
		sizes[nearest(c, centers)]++
	}

	clusters := make([]Cluster, 0, k)
	for i, ctr := range centers {
		if sizes[i] == 0 {
			continue
		}
		clusters = append(clusters, Cluster{
			Center: video.ColorSample{R: uint8(ctr[0]), G: uint8(ctr[1]), B: uint8(ctr[2])},
			Size:   sizes[i],
		})
	}
	sort.SliceStable(clusters, func(i, j int) bool { return clusters[i].Size > clusters[j].Size })
	return clusters
}

func seedCenters(colors []video.ColorSample, k int) [][3]float64 {
	centers := make([][3]float64, k)
	for i := range centers {
		c := colors[i*len(colors)/k]
		centers[i] = [3]float64{float64(c.R), float64(c.G), float64(c.B)}
	}
	return centers
}

func nearest(px video.ColorSample, centers [][3]float64) int {
	best := 0
	minDist := math.MaxFloat64
	for i, c := range centers {
		dr := float64(px.R) - c[0]
		dg := float64(px.G) - c[1]
		db := float64(px.B) - c[2]
		if d := dr*dr + dg*dg + db*db; d < minDist {
			minDist = d
			best = i
		}
	}
	return best
}
