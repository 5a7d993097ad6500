// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package net builds and runs layer graphs described by a netspec document.
//
// # Overview
//
// Building a Net filters the document against its run state, inserts Split
// layers for blobs read by several layers, and wires every layer to named
// buffers. A top that reuses its bottom's name is computed in place and does
// not create a new buffer. Parameters that share a name across layers alias
// the same storage.
//
// # Basic Usage
//
//	spec, _ := netspec.LoadFile("mlp.yaml")
//	n, err := net.New(spec)
//	if err != nil {
//	    var be *net.BuildError
//	    if errors.As(err, &be) {
//	        log.Fatalf("%s at layer %s", be.Kind, be.Layer)
//	    }
//	    log.Fatal(err)
//	}
//
//	if err := n.CopyTrainedLayersFrom("mlp.caffemodel"); err != nil {
//	    log.Fatal(err)
//	}
//	outputs, loss, err := n.RunAll()
package net
