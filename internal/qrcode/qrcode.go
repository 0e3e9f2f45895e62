/*
Copyright 2024 Chairside Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package qrcode renders gift card numbers as inline PNG data URIs for
// e-mail and wallet pass delivery.
package qrcode

import (
	"encoding/base64"

	"github.com/pkg/errors"
	qr "github.com/skip2/go-qrcode"

	"github.com/chairside/chairside/model"
)

// Encoding attempts in order of preference. Higher recovery levels produce
// denser codes that some mail clients downscale into unreadability, so each
// fallback lowers recovery and shrinks the image.
var attempts = []struct {
	level qr.RecoveryLevel
	size  int
}{
	{qr.Highest, 512},
	{qr.Medium, 384},
	{qr.Low, 256},
}

// DataURI encodes a gift card account number as a PNG data URI.
//
// Parameters:
// - gan string: The gift card account number to encode. Must be a valid GAN.
//
// Returns:
// - string: A "data:image/png;base64," URI suitable for an <img> src.
// - error: If the GAN is invalid or every encoding attempt fails.
func DataURI(gan string) (string, error) {
	if !model.IsValidGAN(gan) {
		return "", errors.Errorf("qrcode: invalid gift card number %q", gan)
	}

	var lastErr error
	for _, attempt := range attempts {
		png, err := qr.Encode(gan, attempt.level, attempt.size)
		if err != nil {
			lastErr = err
			continue
		}
		return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
	}
	return "", errors.Wrap(lastErr, "qrcode: encode gift card number")
}
