package routines

// Resolve applies a routine slot's overrides on top of the gym exercise
// defaults. For sets/reps/weight: override if set, otherwise the exercise
// default, otherwise absent. Comments never fall back to the exercise
// (an exercise comment is not a routine instruction).
func Resolve(linked LinkedExercise) ResolvedExercise {
	return ResolvedExercise{
		LinkID:        linked.Link.ID,
		GymExerciseID: linked.Base.ID,
		Title:         linked.Base.Title,
		BodyPart:      linked.Base.BodyPart,
		OrderIndex:    linked.Link.OrderIndex,
		Sets:          firstNonNil(linked.Link.Sets, linked.Base.Sets),
		Reps:          firstNonNil(linked.Link.Reps, linked.Base.Reps),
		Weight:        firstNonNil(linked.Link.Weight, linked.Base.Weight),
		Comments:      linked.Link.Comments,
	}
}

func ResolveAll(linked []LinkedExercise) []ResolvedExercise {
	resolved := make([]ResolvedExercise, 0, len(linked))
	for _, le := range linked {
		resolved = append(resolved, Resolve(le))
	}
	return resolved
}

func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
