package inspa

// BuilderVersion identifies the Builder implementation that produced a
// container's header.build.builder_version field. It has no parsing or
// comparison semantics; it is recorded for human/support consumption only,
// the same role the teacher's own fully-qualified package versions play.
const BuilderVersion = "inspa/1.0"
