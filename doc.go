// Package abstraction builds card abstractions for hold'em by clustering
// equity histograms into a fixed number of buckets with k-means.
//
// Each indexed game situation is summarised by a Histogram (a discretised
// distribution of its equity against a random hand). The k-means engine
// groups those histograms under any DistanceMetric; the resulting labels are
// the buckets a solver later stores in its game tree.
//
// Basic usage:
//
//	cfg := abstraction.DefaultConfig()
//	cfg.Clusters = 50
//	km, err := abstraction.InitRandom(rand.New(rand.NewPCG(1, 2)), data, cfg)
//	res, err := km.Fit(ctx, data)
//	// res.Assignments[i] is the bucket of situation i
//
// # Initialization
//
// InitRandom tries Config.Restarts random center sets and keeps the one whose
// centers are the most mutually distant. InitPlusPlus is the weighted
// k-means++ alternative built on UpdateMinDists.
//
// # Convergence
//
// Fit stops once the fraction of points that changed bucket in an iteration
// drops to Config.Epsilon. If that has not happened after
// Config.MaxIterations, Fit returns its current Result together with
// ErrNotConverged.
package abstraction
