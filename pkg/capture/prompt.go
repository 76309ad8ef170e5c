/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package capture

// User facing instructions
const (
	PromptStepIntoView = "Step into view & pose so your torso is visible: show shoulders, hips and at least one ankle"
	PromptMoveToCenter = "Move to the center of the box and keep torso facing camera"
	PromptCalibrate    = "In position: calibrate (card/height) or hold still to auto-capture"
	PromptHoldStill    = "In position: hold still to capture"
	PromptCaptured     = "Captured: preparing metrics..."
	PromptStopped      = "Stopped"
	PromptStarting     = "Move into the box"
)

// Prompt picks the instruction for the current frame.
// Priority: captured, not confident, not centered, not calibrated, holding.
func Prompt(state State, confident, centered, calibrated bool) string {
	switch {
	case state == Triggered:
		return PromptCaptured
	case !confident:
		return PromptStepIntoView
	case !centered:
		return PromptMoveToCenter
	case !calibrated:
		return PromptCalibrate
	default:
		return PromptHoldStill
	}
}
