//go:build !windows && (!js || !wasm)

package onnx

import (
	"context"
	"fmt"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

// RunnerConfig holds ORT library settings for creating runners.
type RunnerConfig struct {
	LibraryPath string
	APIVersion  uint32
}

// Runner wraps an ORT session for a single ONNX graph.
type Runner struct {
	name    string
	runtime *ort.Runtime
	env     *ort.Env
	session *ort.Session
	meta    Session
}

// NewRunner creates a runner for a single ONNX graph session. Each stage
// that allocates an ORT resource registers its teardown on rollback before
// attempting the next stage, so a failure partway through (env after
// runtime, session after env) releases exactly what was already opened
// without a bespoke cleanup branch per failure point.
func NewRunner(meta Session, cfg RunnerConfig) (*Runner, error) {
	if cfg.APIVersion == 0 {
		cfg.APIVersion = 23
	}

	var rollback []func()
	defer func() {
		for i := len(rollback) - 1; i >= 0; i-- {
			rollback[i]()
		}
	}()

	runtime, err := ort.NewRuntime(cfg.LibraryPath, cfg.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("ort runtime for %q: %w", meta.Name, err)
	}
	rollback = append(rollback, func() { _ = runtime.Close() })

	env, err := runtime.NewEnv("supertonic-"+meta.Name, ort.LoggingLevelWarning)
	if err != nil {
		return nil, fmt.Errorf("ort env for %q: %w", meta.Name, err)
	}
	rollback = append(rollback, env.Close)

	session, err := runtime.NewSession(env, meta.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("ort session for %q (%s): %w", meta.Name, meta.Path, err)
	}

	// Success: disarm the rollback so the runner owns these resources.
	rollback = nil

	return &Runner{
		name:    meta.Name,
		runtime: runtime,
		env:     env,
		session: session,
		meta:    meta,
	}, nil
}

// Run executes the ONNX graph with the given named input tensors.
func (r *Runner) Run(ctx context.Context, inputs map[string]*Tensor) (map[string]*Tensor, error) {
	ortInputs := make(map[string]*ort.Value, len(inputs))
	for name, t := range inputs {
		v, err := tensorToORT(r.runtime, t)
		if err != nil {
			closeORTValues(ortInputs)
			return nil, fmt.Errorf("input %q: %w", name, err)
		}

		ortInputs[name] = v
	}

	defer closeORTValues(ortInputs)

	ortOutputs, err := r.session.Run(ctx, ortInputs)
	if err != nil {
		return nil, fmt.Errorf("run %q: %w", r.name, err)
	}
	defer closeORTValues(ortOutputs)

	results := make(map[string]*Tensor, len(ortOutputs))
	for name, v := range ortOutputs {
		t, err := ortToTensor(v)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}

		results[name] = t
	}

	return results, nil
}

// Close releases all ORT resources. Safe to call multiple times.
func (r *Runner) Close() {
	if r.session != nil {
		r.session.Close()
		r.session = nil
	}

	if r.env != nil {
		r.env.Close()
		r.env = nil
	}

	if r.runtime != nil {
		_ = r.runtime.Close()
		r.runtime = nil
	}
}

// Name returns the graph name from the manifest.
func (r *Runner) Name() string {
	return r.name
}

// tensorToORT dispatches on the tensor's own TensorDType rather than a raw
// Go-type switch, so the vocabulary stays the one tensor.go already defines
// for dtype canonicalization.
func tensorToORT(runtime *ort.Runtime, t *Tensor) (*ort.Value, error) {
	switch t.DType() {
	case DTypeFloat32:
		data, ok := t.Data().([]float32)
		if !ok {
			return nil, fmt.Errorf("float32 tensor has unexpected backing type %T", t.Data())
		}
		return ort.NewTensorValue(runtime, data, t.Shape())
	case DTypeInt64:
		data, ok := t.Data().([]int64)
		if !ok {
			return nil, fmt.Errorf("int64 tensor has unexpected backing type %T", t.Data())
		}
		return ort.NewTensorValue(runtime, data, t.Shape())
	default:
		return nil, fmt.Errorf("unsupported tensor dtype %q", t.DType())
	}
}

func ortDTypeFromElementType(elemType ort.ONNXTensorElementDataType) (TensorDType, error) {
	switch elemType {
	case ort.ONNXTensorElementDataTypeFloat:
		return DTypeFloat32, nil
	case ort.ONNXTensorElementDataTypeInt64:
		return DTypeInt64, nil
	default:
		return "", fmt.Errorf("unsupported ORT element type %d", elemType)
	}
}

func ortToTensor(v *ort.Value) (*Tensor, error) {
	elemType, err := v.GetTensorElementType()
	if err != nil {
		return nil, fmt.Errorf("get element type: %w", err)
	}

	dtype, err := ortDTypeFromElementType(elemType)
	if err != nil {
		return nil, err
	}

	switch dtype {
	case DTypeFloat32:
		data, shape, err := ort.GetTensorData[float32](v)
		if err != nil {
			return nil, err
		}

		return NewTensor(data, shape)
	case DTypeInt64:
		data, shape, err := ort.GetTensorData[int64](v)
		if err != nil {
			return nil, err
		}

		return NewTensor(data, shape)
	default:
		return nil, fmt.Errorf("unsupported ORT element type %d", elemType)
	}
}

func closeORTValues(vals map[string]*ort.Value) {
	for _, v := range vals {
		if v != nil {
			v.Close()
		}
	}
}
