package math

func TransformCreate() *Transform {
	return &Transform{Scale: NewVec3One()}
}

func TransformFromPosition(position Vec3) *Transform {
	return &Transform{Position: position, Scale: NewVec3One()}
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
}

func (t *Transform) Translate(translation Vec3) {
	t.Position = t.Position.Add(translation)
}

func (t *Transform) SetRotation(rotation Vec3) {
	t.Rotation = rotation
}

func (t *Transform) Rotate(rotation Vec3) {
	t.Rotation = t.Rotation.Add(rotation)
}

func (t *Transform) SetScale(scale Vec3) {
	t.Scale = scale
}

/**
 * @brief Builds the local model matrix: scale, then rotation, then translation.
 */
func (t *Transform) Matrix() Mat4 {
	s := NewMat4Scale(t.Scale)
	r := NewMat4EulerXYZ(t.Rotation.X, t.Rotation.Y, t.Rotation.Z)
	tr := NewMat4Translation(t.Position)
	return s.Mul(r).Mul(tr)
}
