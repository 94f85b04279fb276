// Package keypointnode implements the keypoint.* pipeline node factories:
// detectors, descriptors, a tracker, and the list-shaping and cross-pipeline
// nodes that operate on the packed keypoint wire format.
package keypointnode

import (
	"fmt"

	"github.com/gogpu/cvpipeline"
	"github.com/gogpu/cvpipeline/gpucore"
	"github.com/gogpu/cvpipeline/keypoint"
)

// readKeypoints reads back msg's packed texture and decodes it into the
// host-side keypoint list.
func readKeypoints(dev *pipeline.Device, msg pipeline.KeypointMessage) ([]keypoint.Keypoint, error) {
	data, err := dev.Adapter().ReadTexture(msg.Texture)
	if err != nil {
		return nil, fmt.Errorf("keypointnode: reading packed texture: %w", err)
	}
	return keypoint.DecodeAll(data, msg.Options), nil
}

// writeKeypoints packs kps under opts and uploads the result as a fresh
// pool-acquired texture, returning the message a downstream node consumes.
func writeKeypoints(dev *pipeline.Device, kps []keypoint.Keypoint, opts keypoint.EncoderOptions) (pipeline.KeypointMessage, error) {
	packed, err := keypoint.EncodeKeypointsCPU(kps, opts)
	if err != nil {
		return pipeline.KeypointMessage{}, fmt.Errorf("keypointnode: encoding keypoints: %w", err)
	}
	id, err := dev.Pool().Acquire(opts.EncoderLength, opts.EncoderLength, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		return pipeline.KeypointMessage{}, err
	}
	dev.Adapter().WriteTexture(id, packed)
	return pipeline.KeypointMessage{Texture: id, EncoderLength: opts.EncoderLength, Options: opts}, nil
}

// normalizeDescriptors pads or truncates every keypoint's descriptor/extra
// slices to match opts, since a node upstream of a re-encode step may have
// produced keypoints under a different descriptor size.
func normalizeDescriptors(kps []keypoint.Keypoint, opts keypoint.EncoderOptions) []keypoint.Keypoint {
	out := make([]keypoint.Keypoint, len(kps))
	for i, kp := range kps {
		kp.Descriptor = resize(kp.Descriptor, opts.DescriptorSize)
		kp.Extra = resize(kp.Extra, opts.ExtraSize)
		out[i] = kp
	}
	return out
}

func resize(b []byte, n int) []byte {
	if len(b) == n {
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
