package tryon

// Prompt text for the generation and audit calls. The generation instruction
// varies with the garment count because layering guidance only applies when a
// second garment is supplied.

const singleGarmentInstruction = "Create a professional e-commerce fashion photo. " +
	"Take the clothing item from the first image and let the person from the second image wear it. " +
	"Generate a realistic, full-body shot of the person wearing the clothing, " +
	"with the lighting and shadows adjusted to match the environment. " +
	"Preserve the person's identity, pose, and the background of the original photo. " +
	"Output only the final image, no text or explanations."

const dualGarmentInstruction = "Create a professional e-commerce fashion photo. " +
	"Take the 2 clothing items from the first 2 images and let the person from the last image wear them together. " +
	"Position each garment on the anatomically correct body area and layer them naturally " +
	"(e.g. jacket over shirt, hat on head). " +
	"Generate a realistic, full-body shot of the person wearing all the clothing items, " +
	"with the lighting and shadows adjusted to match the environment. " +
	"Preserve the person's identity, pose, and the background of the original photo. " +
	"Output only the final image, no text or explanations."

// generationInstruction returns the edit instruction for the given garment count.
func generationInstruction(garmentCount int) string {
	if garmentCount == 2 {
		return dualGarmentInstruction
	}
	return singleGarmentInstruction
}

const auditInstruction = `You are a strict quality auditor for virtual try-on images.
You will receive labeled images: "model_before" (the original person photo),
"model_after" (the generated try-on result), "garment1" and optionally
"garment2" (the reference garment photos).

Compare model_before against model_after and evaluate whether the garments
were applied correctly.

Respond with a raw JSON object ONLY. No markdown fencing, no commentary, no
text outside the JSON. The object must contain exactly these keys:
- "clothing_changed": boolean, true only if the clothing visibly changed between model_before and model_after
- "matches_input_garments": boolean, true only if the applied clothing matches the supplied garment reference images
- "visual_quality_score": number from 0 to 100 rating the photographic realism of model_after
- "issues": array of short issue tags (empty array when none)
- "summary": one sentence describing the result`

// auditPrompt returns the fixed audit instruction.
func auditPrompt() string {
	return auditInstruction
}
