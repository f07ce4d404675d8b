package builtin

// coreSource declares the non-numeric builtin types spec §6 names:
// Bool, None, String, Env, Pointer[A], and the iteration/disposal
// traits the Sugar Pass's for-loop and with-expression desugarings
// assume exist (internal/passes/sugar.go's desugarFor calls has_next/
// next; desugarWith calls dispose). eq/ne for Bool come from the same
// SugarPass.ensureConstructor synthesis the numeric primitives rely on.
const coreSource = `
primitive Bool
  fun box op_and(other: Bool): Bool => true
  fun box op_or(other: Bool): Bool => true
  fun box op_xor(other: Bool): Bool => true
  fun box op_not(): Bool => true

primitive None

class String
  fun box size(): I64 => 0
  fun box apply(i: I64): U8 ? => error
  fun box add(other: String): String => this
  fun box eq(other: String): Bool => true
  fun box ne(other: String): Bool => true

class Env
  var out: String
  var err: String

  new create() =>
    true

struct Pointer[A]
  fun box apply(i: U64): A ? => error
  fun box update(i: U64, value: A): A^ ? => error

class Array[A]
  fun box size(): I64 => 0
  fun ref apply(i: I64): A ? => error
  fun ref update(i: I64, value: A): A^ ? => error

trait Iterator[A]
  fun ref has_next(): Bool
  fun ref next(): A ?

trait Dispose
  fun box dispose()
`
