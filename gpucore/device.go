package gpucore

// Device abstracts over the compute backends an effect can run on.
//
// Implementations must be safe for concurrent use; the same device is
// shared read-only by every effect created on it.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destruction is queue-ordered: work committed before the Destroy call
//     still sees the resource
//   - IDs become invalid after destruction and must not be reused
type Device interface {
	// Name identifies the device for logs and diagnostics.
	Name() string

	// === Textures ===

	// CreateTexture allocates a 2-D texture. The contents are zeroed.
	CreateTexture(desc *TextureDesc) (TextureID, error)

	// DestroyTexture releases a texture once prior work has completed.
	DestroyTexture(id TextureID)

	// ReadTexture returns tightly packed texel data. It is ordered after
	// every command sequence committed before the call and blocks until
	// those have finished.
	ReadTexture(id TextureID) ([]byte, error)

	// === Buffers ===

	// CreateBuffer allocates a zeroed buffer of size bytes.
	CreateBuffer(size int, usage BufferUsage) (BufferID, error)

	// DestroyBuffer releases a buffer once prior work has completed.
	DestroyBuffer(id BufferID)

	// === Pipelines ===

	// CreateComputePipeline builds an executable pipeline for a kernel.
	CreateComputePipeline(desc *ComputePipelineDesc) (ComputePipelineID, error)

	// DestroyComputePipeline releases a pipeline.
	DestroyComputePipeline(id ComputePipelineID)

	// PipelineLimits reports the group limits for a built pipeline.
	PipelineLimits(id ComputePipelineID) (Limits, error)

	// ConfigureWorkgroup fixes the square group side a pipeline runs with.
	// Backends whose group size is a compile-time constant rebuild here.
	ConfigureWorkgroup(id ComputePipelineID, side int) error

	// === Command Recording ===

	// NewCommandEncoder starts a command sequence.
	NewCommandEncoder(label string) (CommandEncoder, error)

	// Close releases the device. Pending work is completed first.
	Close() error
}

// CommandEncoder records one command sequence.
//
// Usage:
//  1. Obtain encoder from Device.NewCommandEncoder()
//  2. Upload data with WriteTexture / WriteBuffer / CopyTexture
//  3. Record compute passes
//  4. Call Commit() to enqueue the sequence
//
// Uploads are captured at record time, so callers may reuse their slices
// immediately. The encoder is single-use.
type CommandEncoder interface {
	// WriteTexture uploads tightly packed texels covering the whole texture.
	WriteTexture(id TextureID, data []byte)

	// CopyTexture copies src into dst. Both must have the same size.
	CopyTexture(src, dst TextureID)

	// WriteBuffer replaces the contents of a buffer from offset 0.
	WriteBuffer(id BufferID, data []byte)

	// BeginComputePass starts recording a compute pass.
	BeginComputePass(label string) ComputePassEncoder

	// Commit enqueues the sequence on the device queue and returns without
	// waiting. Any recording error surfaces here.
	Commit() error
}

// ComputePassEncoder records compute commands.
//
// The encoder is single-use and cannot be reused after End().
type ComputePassEncoder interface {
	// SetPipeline sets the active compute pipeline.
	SetPipeline(pipeline ComputePipelineID)

	// SetTexture binds a texture at a kernel texture slot.
	SetTexture(slot int, id TextureID)

	// SetBuffer binds a parameter buffer at a kernel buffer slot.
	SetBuffer(slot int, id BufferID)

	// Dispatch runs groups.Width x groups.Height groups of
	// threads.Width x threads.Height invocations.
	Dispatch(groups, threads Size)

	// End finishes the compute pass.
	End()
}
