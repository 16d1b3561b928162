// Package pipeline runs one record file through the clustering phases in order.
//
// The phases are parse, cluster, export-maps, graph, export-graph and the
// optional analyze step. Each phase is a Step that receives the same
// *model.Run and fills in its part. Steps never run concurrently within a
// pipeline; the only intra-run parallelism is the grouping of input records
// inside the cluster step.
//
// BatchProcessor runs independent pipelines over several record files with
// bounded concurrency using errgroup. Every file gets its own pipeline and
// therefore its own address index and union-find forest.
package pipeline
