package cpu

// setFlagsArith8/16 derive CF/OF/AF/ZF/SF/PF from an arithmetic result
// computed in a wider accumulator than the operand width, following
// IntuitionAmiga-IntuitionEngine's setFlagsArith8/16/32 shape.
func (c *CPU) setFlagsArith8(result uint16, a, b byte, subtract bool) {
	r := byte(result)
	c.setFlag(flagCF, result > 0xFF)
	c.setFlag(flagZF, r == 0)
	c.setFlag(flagSF, r&0x80 != 0)
	c.setFlag(flagPF, parity(r))
	c.setFlag(flagAF, ((a^b^r)&0x10) != 0)
	if subtract {
		c.setFlag(flagOF, ((a^b)&(a^r)&0x80) != 0)
	} else {
		c.setFlag(flagOF, (^(a^b)&(a^r)&0x80) != 0)
	}
}

func (c *CPU) setFlagsArith16(result uint32, a, b uint16, subtract bool) {
	r := uint16(result)
	c.setFlag(flagCF, result > 0xFFFF)
	c.setFlag(flagZF, r == 0)
	c.setFlag(flagSF, r&0x8000 != 0)
	c.setFlag(flagPF, parity(byte(r)))
	c.setFlag(flagAF, ((a^b^r)&0x10) != 0)
	if subtract {
		c.setFlag(flagOF, ((a^b)&(a^r)&0x8000) != 0)
	} else {
		c.setFlag(flagOF, (^(a^b)&(a^r)&0x8000) != 0)
	}
}

func (c *CPU) setFlagsLogic8(result byte) {
	c.setFlag(flagCF, false)
	c.setFlag(flagOF, false)
	c.setFlag(flagZF, result == 0)
	c.setFlag(flagSF, result&0x80 != 0)
	c.setFlag(flagPF, parity(result))
}

func (c *CPU) setFlagsLogic16(result uint16) {
	c.setFlag(flagCF, false)
	c.setFlag(flagOF, false)
	c.setFlag(flagZF, result == 0)
	c.setFlag(flagSF, result&0x8000 != 0)
	c.setFlag(flagPF, parity(byte(result)))
}

func (c *CPU) CF() bool { return c.getFlag(flagCF) }
func (c *CPU) ZF() bool { return c.getFlag(flagZF) }
func (c *CPU) SF() bool { return c.getFlag(flagSF) }
func (c *CPU) OF() bool { return c.getFlag(flagOF) }
func (c *CPU) PF() bool { return c.getFlag(flagPF) }
