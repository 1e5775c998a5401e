// SPDX-License-Identifier: MIT

// Package ctmctree computes likelihoods of i.i.d. site observations under
// continuous-time Markov chains evolving along a rooted tree, together with
// derivatives of the log-likelihood with respect to the log branch scales.
//
// What is inside?
//
//	statespace/   finite states as tuples of axis values, ravel/index, missing codes
//	process/      sparse transition triples into a dense generator Q and labeled rates E
//	tree/         edge-list validation, pre/post order, paths to the root
//	matrix/       dense kernels, LU, Padé expm and its Fréchet derivative, eigen adapter
//	transition/   concurrent cache of exp(rQ), r·dexp(rQ)/dr and L(rQ, rE) per (process, scale)
//	prune/        per-site upward pass, path derivatives, marginals and expected counts
//	likelihood/   parallel site map, deterministic weighted reduction, metrics
//	model/        the model record, decoded from JSON, YAML or TOML and validated
//	config/       engine settings from TOML
//	cmd/          the ctmctree CLI (eval, marginals, check, expect)
//
// Quick example:
//
//	m, err := model.Load("model.yaml")
//	if err != nil { ... }
//	res, err := likelihood.EvaluateModel(ctx, m, likelihood.WithWorkers(4))
//	fmt.Println(res.LogLikelihood, res.Derivatives)
//
// Errors are package sentinels (statespace.ErrInvalidState,
// process.ErrInvalidTransition, tree.ErrInvalidTopology,
// transition.ErrNumericInstability, prune.ErrNumericUnderflow,
// model.ErrInvalidModel) wrapped with context; test them with errors.Is.
//
//	go install github.com/katalvlaran/ctmctree/cmd/ctmctree@latest
package ctmctree
